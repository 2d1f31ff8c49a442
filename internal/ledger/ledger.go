// Package ledger owns all quota decisions: whether a user may download from
// a platform, the atomic consumption of one allowance unit, premium grants
// and activity tracking. It layers policy on top of the account repository;
// all mutation atomicity lives in the repository's storage-side scripts.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/teledl/internal/config"
	"github.com/iliyamo/teledl/internal/logging"
	"github.com/iliyamo/teledl/internal/model"
	"github.com/iliyamo/teledl/internal/repository"
)

// ErrStorage marks account-store failures. Callers surface these to the user
// as a transient condition; they are fatal for the current request only.
var ErrStorage = errors.New("account store unavailable")

// ErrNoAllowance re-exports the repository sentinel so callers depend on the
// ledger package alone.
var ErrNoAllowance = repository.ErrNoAllowance

// ConsumptionResult reports which pool a consumed unit came from and what
// remains on the platform afterwards.
type ConsumptionResult struct {
	UsedPremium      bool // false = a free slot was used
	RemainingFree    int
	RemainingPremium int
}

// Service is the Allowance Ledger.
type Service struct {
	repo      *repository.UserAccountRepo
	platforms config.Platforms
}

// New constructs the ledger service.
func New(repo *repository.UserAccountRepo, platforms config.Platforms) *Service {
	return &Service{repo: repo, platforms: platforms}
}

// Platforms exposes the configured platform table for menu rendering.
func (s *Service) Platforms() config.Platforms { return s.platforms }

// CheckAllowance reports whether the user currently holds allowance for the
// platform: a free slot below the limit, or positive premium balance. It is
// read-only and must gate every fetch; the later Consume call re-verifies
// atomically, so two racing requests cannot both spend the last unit.
func (s *Service) CheckAllowance(ctx context.Context, userID int64, platform string) (bool, error) {
	if !s.platforms.Has(platform) {
		return false, repository.ErrUnknownPlatform
	}
	acct, err := s.repo.Fetch(ctx, userID)
	if err != nil {
		return false, storageErr(err)
	}
	st := acct.State(platform)
	return st.FreeCount < s.platforms.Limit(platform) || st.PremiumCount > 0, nil
}

// ConsumeAllowance atomically spends one unit for the platform: free first,
// then premium. Returns ErrNoAllowance when the user holds neither — that is
// a caller error when CheckAllowance gated the call, but it is reachable
// under concurrency and is handled, not panicked on.
func (s *Service) ConsumeAllowance(ctx context.Context, userID int64, platform string) (*ConsumptionResult, error) {
	out, err := s.repo.Consume(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, repository.ErrNoAllowance) || errors.Is(err, repository.ErrUnknownPlatform) {
			return nil, err
		}
		return nil, storageErr(err)
	}
	if out.ExhaustedAt != nil {
		logging.Ledger.Printf("user %d exhausted all allowance, fast retention timer armed", userID)
	}
	return &ConsumptionResult{
		UsedPremium:      out.UsedPremium,
		RemainingFree:    s.platforms.Limit(platform) - out.FreeCount,
		RemainingPremium: out.PremiumCount,
	}, nil
}

// GrantPremium atomically adds count premium downloads for the user on the
// platform and clears the exhaustion marker. count must be positive.
// Returns the new premium balance.
func (s *Service) GrantPremium(ctx context.Context, userID int64, platform string, count int) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("premium count must be positive, got %d", count)
	}
	balance, err := s.repo.Grant(ctx, userID, platform, count)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownPlatform) {
			return 0, err
		}
		return 0, storageErr(err)
	}
	logging.Ledger.Printf("granted %d premium %s downloads to user %d (balance %d)", count, platform, userID, balance)
	return balance, nil
}

// TouchActivity records an inbound interaction for idle-expiry purposes,
// creating the account document on first contact. Called on every update,
// independent of download outcome.
func (s *Service) TouchActivity(ctx context.Context, userID int64) error {
	if err := s.repo.Touch(ctx, userID); err != nil {
		return storageErr(err)
	}
	return nil
}

// Account returns the current account document (zeroed when the user is
// unknown), for menu rendering and operator inspection.
func (s *Service) Account(ctx context.Context, userID int64) (*model.UserAccount, error) {
	acct, err := s.repo.Fetch(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	return acct, nil
}

// ExpiresIn reports the storage-layer retention TTL remaining on the user's
// document. repository.ErrNotFound passes through for unknown users.
func (s *Service) ExpiresIn(ctx context.Context, userID int64) (time.Duration, error) {
	d, err := s.repo.ExpiresIn(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, err
		}
		return 0, storageErr(err)
	}
	return d, nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
