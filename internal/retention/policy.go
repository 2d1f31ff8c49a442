// Package retention holds the passive data-retention policy for user
// accounts. The policy is not a poller: it only computes how long a record
// may live, and the account store hands that figure to the storage engine's
// own expiry mechanism (key TTL), which performs the actual deletion.
package retention

import "time"

// Policy defines the two independent expiry timers applied to every user
// record. Both race; the record is deleted when the first one fires.
//
//	IdleWindow      – delete after this long without any activity.
//	ExhaustedWindow – delete this long after the account exhausted all free
//	                  and premium allowance on every platform.
//
// Clearing the exhaustion marker (any premium grant does this) cancels the
// fast path and leaves only the idle timer.
type Policy struct {
	IdleWindow      time.Duration
	ExhaustedWindow time.Duration
}

// Default mirrors the production configuration: abandoned free accounts are
// reclaimed slowly, fully drained accounts quickly.
func Default() Policy {
	return Policy{
		IdleWindow:      18 * 24 * time.Hour,
		ExhaustedWindow: 2 * 24 * time.Hour,
	}
}

// Deadline returns the instant at which a record with the given state
// becomes eligible for deletion: the earlier of (lastActivity + IdleWindow)
// and, when set, (exhaustedAt + ExhaustedWindow).
func (p Policy) Deadline(lastActivity time.Time, exhaustedAt *time.Time) time.Time {
	deadline := lastActivity.Add(p.IdleWindow)
	if exhaustedAt != nil {
		if fast := exhaustedAt.Add(p.ExhaustedWindow); fast.Before(deadline) {
			deadline = fast
		}
	}
	return deadline
}

// TTL returns the remaining lifetime at time now for a record with the given
// state. The result is never below one second: a record that is already past
// its deadline still gets a minimal TTL so the storage engine removes it
// rather than keeping it forever.
func (p Policy) TTL(now, lastActivity time.Time, exhaustedAt *time.Time) time.Duration {
	ttl := p.Deadline(lastActivity, exhaustedAt).Sub(now)
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
