package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/teledl/internal/config"
	"github.com/iliyamo/teledl/internal/model"
	"github.com/iliyamo/teledl/internal/retention"
)

// UserAccountRepo provides access to per-user account documents stored in
// Redis. One hash per user, keyed by Telegram user ID. Every mutation runs
// as a single server-side script so the read-modify-write sequence (pick the
// counter to bump, recompute cross-platform exhaustion on the just-updated
// document, refresh the retention TTL) cannot interleave with a concurrent
// request for the same user. The scripts return the post-update state, so
// callers never work from a stale read.
//
// Record creation is implicit and idempotent: writing a field to a missing
// hash creates it, and the user ID is the key, so two concurrent first
// touches land on the same document.
type UserAccountRepo struct {
	rdb       *redis.Client
	platforms config.Platforms
	policy    retention.Policy
}

// NewUserAccountRepo constructs a UserAccountRepo. The platform table is
// captured once: the consume script receives every platform and its free
// limit as arguments so the exhaustion recompute covers the whole table.
func NewUserAccountRepo(rdb *redis.Client, platforms config.Platforms, policy retention.Policy) *UserAccountRepo {
	return &UserAccountRepo{rdb: rdb, platforms: platforms, policy: policy}
}

func userKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// consumeScript implements the allowance consumption primitive: use a free
// slot if any remain below the platform limit, else draw from the premium
// balance, else report "none" without mutating anything. After a successful
// mutation it recomputes the cross-platform exhaustion marker from the
// document as it now stands and refreshes the key TTL to the minimum of the
// racing retention timers.
//
// KEYS[1] = user hash key
// ARGV[1] = platform ID
// ARGV[2] = now (unix seconds)
// ARGV[3] = idle window (seconds)
// ARGV[4] = exhaustion window (seconds)
// ARGV[5] = platform count n, followed by n (id, free_limit) pairs
//
// Returns { used, free_count, premium_count, exhausted_at } where used is
// "free", "premium" or "none" and exhausted_at is 0 when the marker is clear.
var consumeScript = redis.NewScript(`
    local key = KEYS[1]
    local platform = ARGV[1]
    local now = tonumber(ARGV[2])
    local idle_s = tonumber(ARGV[3])
    local exhausted_s = tonumber(ARGV[4])
    local n = tonumber(ARGV[5])

    local limit = 0
    for i = 0, n - 1 do
        if ARGV[6 + 2*i] == platform then
            limit = tonumber(ARGV[7 + 2*i])
        end
    end

    local free = tonumber(redis.call('HGET', key, platform .. ':free') or '0')
    local premium = tonumber(redis.call('HGET', key, platform .. ':premium') or '0')

    local used
    if free < limit then
        free = free + 1
        redis.call('HSET', key, platform .. ':free', free)
        used = 'free'
    elseif premium > 0 then
        premium = premium - 1
        redis.call('HSET', key, platform .. ':premium', premium)
        used = 'premium'
    else
        return { 'none', free, premium, 0 }
    end

    redis.call('HSET', key, 'last_activity', now)

    local exhausted = 1
    for i = 0, n - 1 do
        local p = ARGV[6 + 2*i]
        local lim = tonumber(ARGV[7 + 2*i])
        local f = tonumber(redis.call('HGET', key, p .. ':free') or '0')
        local pr = tonumber(redis.call('HGET', key, p .. ':premium') or '0')
        if f < lim or pr > 0 then
            exhausted = 0
            break
        end
    end

    local exhausted_at = 0
    if exhausted == 1 then
        exhausted_at = now
        redis.call('HSET', key, 'premium_exhausted_at', now)
    else
        redis.call('HDEL', key, 'premium_exhausted_at')
    end

    local ttl = idle_s
    if exhausted_at > 0 then
        local fast = exhausted_at + exhausted_s - now
        if fast < ttl then ttl = fast end
    end
    if ttl < 1 then ttl = 1 end
    redis.call('EXPIRE', key, ttl)

    return { used, free, premium, exhausted_at }
`)

// touchScript upserts last_activity and refreshes the key TTL while keeping
// the exhaustion timer racing: activity alone never clears the marker, so
// the TTL stays at whichever deadline comes first.
//
// KEYS[1] = user hash key
// ARGV[1] = now, ARGV[2] = idle window s, ARGV[3] = exhaustion window s
var touchScript = redis.NewScript(`
    local key = KEYS[1]
    local now = tonumber(ARGV[1])
    local idle_s = tonumber(ARGV[2])
    local exhausted_s = tonumber(ARGV[3])

    redis.call('HSET', key, 'last_activity', now)

    local ttl = idle_s
    local ex = redis.call('HGET', key, 'premium_exhausted_at')
    if ex then
        local fast = tonumber(ex) + exhausted_s - now
        if fast < ttl then ttl = fast end
    end
    if ttl < 1 then ttl = 1 end
    redis.call('EXPIRE', key, ttl)
    return ttl
`)

// grantScript adds premium balance and unconditionally clears the exhaustion
// marker: replenishment always cancels the fast retention path, regardless
// of the other platforms' state. Upsert semantics: a missing document is
// created, with last_activity seeded only if absent so a grant to a dormant
// account does not masquerade as activity. Consequently the TTL is computed
// from the stored last_activity, not from now: the idle deadline of a
// dormant account stays where it was.
//
// KEYS[1] = user hash key
// ARGV[1] = platform, ARGV[2] = count, ARGV[3] = now, ARGV[4] = idle window s
var grantScript = redis.NewScript(`
    local key = KEYS[1]
    local platform = ARGV[1]
    local count = tonumber(ARGV[2])
    local now = tonumber(ARGV[3])
    local idle_s = tonumber(ARGV[4])

    local balance = redis.call('HINCRBY', key, platform .. ':premium', count)
    redis.call('HDEL', key, 'premium_exhausted_at')
    redis.call('HSETNX', key, 'last_activity', now)

    local last = tonumber(redis.call('HGET', key, 'last_activity'))
    local ttl = last + idle_s - now
    if ttl < 1 then ttl = 1 end
    redis.call('EXPIRE', key, ttl)
    return balance
`)

// ConsumeOutcome is the post-update state returned by Consume.
type ConsumeOutcome struct {
	UsedPremium  bool       // false = a free slot was consumed
	FreeCount    int        // free downloads used on the platform, after the update
	PremiumCount int        // premium balance on the platform, after the update
	ExhaustedAt  *time.Time // exhaustion marker after the update, nil when clear
}

// platformArgs returns the trailing (count, id, limit, id, limit, ...)
// argument block shared by scripts that recompute exhaustion.
func (r *UserAccountRepo) platformArgs() []interface{} {
	ids := r.platforms.IDs()
	args := make([]interface{}, 0, 1+2*len(ids))
	args = append(args, len(ids))
	for _, id := range ids {
		args = append(args, id, r.platforms.Limit(id))
	}
	return args
}

// Consume atomically spends one unit of allowance for the platform. It
// returns ErrNoAllowance when the document holds neither a free slot nor
// premium balance; the document is untouched in that case.
func (r *UserAccountRepo) Consume(ctx context.Context, userID int64, platform string) (*ConsumeOutcome, error) {
	if !r.platforms.Has(platform) {
		return nil, ErrUnknownPlatform
	}
	now := time.Now().UTC()
	args := []interface{}{
		platform,
		now.Unix(),
		int64(r.policy.IdleWindow / time.Second),
		int64(r.policy.ExhaustedWindow / time.Second),
	}
	args = append(args, r.platformArgs()...)

	vals, err := consumeScript.Run(ctx, r.rdb, []string{userKey(userID)}, args...).Slice()
	if err != nil {
		return nil, fmt.Errorf("consume script: %w", err)
	}
	if len(vals) != 4 {
		return nil, fmt.Errorf("consume script: unexpected result %#v", vals)
	}

	used, _ := vals[0].(string)
	if used == "none" {
		return nil, ErrNoAllowance
	}
	out := &ConsumeOutcome{
		UsedPremium:  used == "premium",
		FreeCount:    int(asInt64(vals[1])),
		PremiumCount: int(asInt64(vals[2])),
	}
	if ts := asInt64(vals[3]); ts > 0 {
		t := time.Unix(ts, 0).UTC()
		out.ExhaustedAt = &t
	}
	return out, nil
}

// Touch upserts last_activity = now for the user, creating the document if
// it does not exist. Called on every inbound interaction.
func (r *UserAccountRepo) Touch(ctx context.Context, userID int64) error {
	now := time.Now().UTC()
	err := touchScript.Run(ctx, r.rdb, []string{userKey(userID)},
		now.Unix(),
		int64(r.policy.IdleWindow/time.Second),
		int64(r.policy.ExhaustedWindow/time.Second),
	).Err()
	if err != nil {
		return fmt.Errorf("touch script: %w", err)
	}
	return nil
}

// Grant atomically adds count premium downloads on the platform and clears
// the exhaustion marker. It returns the new premium balance.
func (r *UserAccountRepo) Grant(ctx context.Context, userID int64, platform string, count int) (int, error) {
	if !r.platforms.Has(platform) {
		return 0, ErrUnknownPlatform
	}
	now := time.Now().UTC()
	balance, err := grantScript.Run(ctx, r.rdb, []string{userKey(userID)},
		platform,
		count,
		now.Unix(),
		int64(r.policy.IdleWindow/time.Second),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("grant script: %w", err)
	}
	return int(balance), nil
}

// Fetch reads the account document. Reading is plain (no script): a single
// HGETALL is already atomic. A missing document comes back as a zeroed
// account rather than an error — callers only ever need the counters, and
// actual record creation is left to Touch so that reads stay side-effect
// free.
func (r *UserAccountRepo) Fetch(ctx context.Context, userID int64) (*model.UserAccount, error) {
	fields, err := r.rdb.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	acct := &model.UserAccount{
		ID:        userID,
		Platforms: make(map[string]model.PlatformState, len(r.platforms)),
	}
	for _, id := range r.platforms.IDs() {
		acct.Platforms[id] = model.PlatformState{
			FreeCount:    atoi(fields[id+":free"]),
			PremiumCount: atoi(fields[id+":premium"]),
		}
	}
	if v := fields["last_activity"]; v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			acct.LastActivityAt = time.Unix(ts, 0).UTC()
		}
	}
	if v := fields["premium_exhausted_at"]; v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := time.Unix(ts, 0).UTC()
			acct.PremiumExhaustedAt = &t
		}
	}
	return acct, nil
}

// ExpiresIn reports the remaining storage-layer TTL for the user's document.
// Returns ErrNotFound when the document does not exist.
func (r *UserAccountRepo) ExpiresIn(ctx context.Context, userID int64) (time.Duration, error) {
	d, err := r.rdb.TTL(ctx, userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("account ttl: %w", err)
	}
	if d < 0 { // -2 missing key, -1 no expiry set
		return 0, ErrNotFound
	}
	return d, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
