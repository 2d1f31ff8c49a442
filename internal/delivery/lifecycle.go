// Package delivery orchestrates one download request from allowance check
// through fetch, transport delivery, quota commit and scheduled deletion,
// with compensating cleanup on every failure path. Allowance is consumed
// strictly after confirmed delivery: a failed fetch or a rejected transport
// never charges quota.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/teledl/internal/downloader"
	"github.com/iliyamo/teledl/internal/ledger"
	"github.com/iliyamo/teledl/internal/logging"
	"github.com/iliyamo/teledl/internal/model"
)

// Failure taxonomy at the request boundary. The bot maps each to a
// user-visible message; none of them crashes the handling of other requests.
var (
	// ErrDenied: no allowance on the platform. Not an error condition for
	// the system, but modelled as one so the flow short-circuits uniformly.
	ErrDenied = errors.New("download not permitted")
	// ErrFetchFailed wraps collaborator failures: bad link, source
	// unavailable, extraction error, timeout.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrDeliveryFailed wraps transport rejection after a successful fetch.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// AllowanceLedger is the slice of the ledger the lifecycle needs.
type AllowanceLedger interface {
	CheckAllowance(ctx context.Context, userID int64, platform string) (bool, error)
	ConsumeAllowance(ctx context.Context, userID int64, platform string) (*ledger.ConsumptionResult, error)
}

// Transport delivers a local artifact to a chat and returns the message
// reference. Implementations choose the encoding (video/photo/audio/
// document) from the file itself and fall back to the generic document
// category when a specialized one is rejected.
type Transport interface {
	Deliver(ctx context.Context, chatID int64, artifact downloader.Artifact, caption string) (int, error)
}

// Receipt is the outcome of a fully delivered request.
type Receipt struct {
	Artifact    model.DeliveredArtifact
	Consumption *ledger.ConsumptionResult
}

// Manager runs the per-request state machine. One Handle call per request;
// each call is an independently schedulable unit of work (the bot invokes it
// from its own goroutine), so a slow fetch never blocks other users.
type Manager struct {
	ledger   AllowanceLedger
	fetchers map[string]downloader.Fetcher
	trans    Transport
	janitor  *Janitor
}

// NewManager wires the lifecycle manager.
func NewManager(l AllowanceLedger, fetchers map[string]downloader.Fetcher, t Transport, j *Janitor) *Manager {
	return &Manager{ledger: l, fetchers: fetchers, trans: t, janitor: j}
}

// Handle drives one request: check allowance, fetch, deliver, commit the
// consumption, schedule deferred deletion. Any non-success terminal state
// cleans up the local artifact best-effort and returns an error from the
// package taxonomy (or a ledger.ErrStorage-wrapped error).
func (m *Manager) Handle(ctx context.Context, req model.DownloadRequest, caption string) (*Receipt, error) {
	permitted, err := m.ledger.CheckAllowance(ctx, req.UserID, req.Platform)
	if err != nil {
		return nil, err
	}
	if !permitted {
		return nil, ErrDenied
	}

	fetcher, ok := m.fetchers[req.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: no fetcher for platform %q", ErrFetchFailed, req.Platform)
	}

	artifact, err := fetcher.Fetch(ctx, req.SourceLink)
	if err != nil {
		// Fetchers leave no file behind on error; nothing to clean.
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	msgRef, err := m.trans.Deliver(ctx, req.ChatID, *artifact, caption)
	if err != nil {
		m.janitor.Remove(artifact.Path)
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	delivered := model.DeliveredArtifact{
		FilePath:   artifact.Path,
		SizeBytes:  artifact.SizeBytes,
		MessageRef: msgRef,
	}

	// Commit strictly after confirmed delivery. If the commit itself fails
	// (store down, or a same-user race drained the last unit between check
	// and now) the user already has the file; the artifact is still put on
	// the deletion schedule and the error is surfaced.
	consumption, err := m.ledger.ConsumeAllowance(ctx, req.UserID, req.Platform)
	if err != nil {
		logging.Delivery.Printf("delivered to user %d but consume failed: %v", req.UserID, err)
		m.janitor.Schedule(delivered, req.ChatID)
		return nil, err
	}

	m.janitor.Schedule(delivered, req.ChatID)
	return &Receipt{Artifact: delivered, Consumption: consumption}, nil
}
