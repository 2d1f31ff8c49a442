package model

import "time"

// PlatformState tracks one user's consumed free allowance and remaining
// premium balance on a single platform.
//
// Fields:
//
//	FreeCount    – free downloads already used; never exceeds the platform's configured limit.
//	PremiumCount – purchased downloads remaining; never negative.
type PlatformState struct {
	FreeCount    int `json:"free_count"`
	PremiumCount int `json:"premium_count"`
}

// UserAccount is the per-user document held in the account store, keyed by
// the Telegram user ID. It is created lazily on first interaction, mutated
// only through atomic single-document operations, and deleted by the storage
// layer's own expiry once one of the retention timers fires.
//
// PremiumExhaustedAt is non-nil exactly when every configured platform has
// its free allowance fully consumed and a zero premium balance; any premium
// grant clears it.
type UserAccount struct {
	ID                 int64                    `json:"id"`
	LastActivityAt     time.Time                `json:"last_activity_at"`
	Platforms          map[string]PlatformState `json:"platforms"`
	PremiumExhaustedAt *time.Time               `json:"premium_exhausted_at,omitempty"`
}

// State returns the platform state for the given platform ID, zero-valued
// when the account has never touched that platform.
func (u *UserAccount) State(platform string) PlatformState {
	if u.Platforms == nil {
		return PlatformState{}
	}
	return u.Platforms[platform]
}
