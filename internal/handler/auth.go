package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/teledl/internal/config"
	"github.com/iliyamo/teledl/internal/utils"
)

// AuthHandler implements the operator login endpoint. There is a single
// operator account configured from the environment; a successful login
// returns a short-lived access token for the admin endpoints.
type AuthHandler struct {
	Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{Cfg: cfg}
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type loginResp struct {
	Operator string    `json:"operator"`
	Access   tokenPart `json:"access"`
}

// Login verifies the operator credentials and issues an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	// Run the bcrypt comparison even for a wrong username so both failure
	// modes cost the same.
	hash := h.Cfg.OperatorPassHash
	if req.Username != h.Cfg.OperatorUser {
		hash = "$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinval"
	}
	if !utils.VerifyPassword(hash, req.Password) || req.Username != h.Cfg.OperatorUser {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.Username, "OPERATOR", h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token issue failed"})
	}
	return c.JSON(http.StatusOK, loginResp{
		Operator: req.Username,
		Access:   tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
