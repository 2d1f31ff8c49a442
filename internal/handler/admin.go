package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/teledl/internal/config"
	"github.com/iliyamo/teledl/internal/ledger"
	"github.com/iliyamo/teledl/internal/repository"
)

// AdminHandler exposes the operator endpoints for inspecting accounts,
// granting premium downloads and reviewing payment proofs.
type AdminHandler struct {
	Cfg       config.Config
	Platforms config.Platforms
	Ledger    *ledger.Service
	Payments  *repository.PaymentRepo
}

func NewAdminHandler(cfg config.Config, platforms config.Platforms, l *ledger.Service, p *repository.PaymentRepo) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Platforms: platforms, Ledger: l, Payments: p}
}

type grantReq struct {
	UserID   int64  `json:"user_id"`
	Platform string `json:"platform"`
	Count    int    `json:"count"`
}

type grantResp struct {
	UserID   int64  `json:"user_id"`
	Platform string `json:"platform"`
	Balance  int    `json:"premium_balance"`
}

// GrantPremium credits premium downloads to a user. Counts must be positive
// and the platform must exist in the platform table.
func (h *AdminHandler) GrantPremium(c echo.Context) error {
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Platform = strings.ToLower(strings.TrimSpace(req.Platform))
	if req.UserID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}
	if !h.Platforms.Has(req.Platform) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown platform"})
	}
	if req.Count <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "count must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	balance, err := h.Ledger.GrantPremium(ctx, req.UserID, req.Platform, req.Count)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant failed"})
	}
	grant := repository.PremiumGrant{
		UserID:    req.UserID,
		Platform:  req.Platform,
		Count:     req.Count,
		GrantedBy: "operator",
	}
	if operator, ok := c.Get("operator").(string); ok && operator != "" {
		grant.GrantedBy = "operator:" + operator
	}
	if err := h.Payments.RecordGrant(ctx, grant); err != nil {
		// Grant already applied; only the audit row failed.
		c.Logger().Errorf("record grant audit: %v", err)
	}
	return c.JSON(http.StatusOK, grantResp{UserID: req.UserID, Platform: req.Platform, Balance: balance})
}

type platformPart struct {
	FreeUsed  int `json:"free_used"`
	FreeLimit int `json:"free_limit"`
	Premium   int `json:"premium"`
}

type accountResp struct {
	UserID             int64                   `json:"user_id"`
	LastActivityAt     *time.Time              `json:"last_activity_at,omitempty"`
	PremiumExhaustedAt *time.Time              `json:"premium_exhausted_at,omitempty"`
	Platforms          map[string]platformPart `json:"platforms"`
	ExpiresInSeconds   int64                   `json:"expires_in_seconds,omitempty"`
}

// GetUser returns a user's allowance state and how long until the record is
// dropped by retention.
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acct, err := h.Ledger.Account(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	resp := accountResp{UserID: id, Platforms: make(map[string]platformPart, len(h.Platforms))}
	if !acct.LastActivityAt.IsZero() {
		t := acct.LastActivityAt
		resp.LastActivityAt = &t
	}
	resp.PremiumExhaustedAt = acct.PremiumExhaustedAt
	for _, pid := range h.Platforms.IDs() {
		st := acct.State(pid)
		resp.Platforms[pid] = platformPart{
			FreeUsed:  st.FreeCount,
			FreeLimit: h.Platforms.Limit(pid),
			Premium:   st.PremiumCount,
		}
	}
	if ttl, err := h.Ledger.ExpiresIn(ctx, id); err == nil {
		resp.ExpiresInSeconds = int64(ttl.Seconds())
	}
	return c.JSON(http.StatusOK, resp)
}

// ListPayments returns the most recent payment proofs, newest first.
func (h *AdminHandler) ListPayments(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	proofs, err := h.Payments.ListRecentProofs(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": proofs})
}

type proofStatusReq struct {
	Status string `json:"status"`
}

// SetPaymentStatus marks a payment proof as verified or rejected after the
// operator has checked the transaction.
func (h *AdminHandler) SetPaymentStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	var req proofStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status != "APPROVED" && status != "REJECTED" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be APPROVED or REJECTED"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Payments.SetProofStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
