package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/teledl/internal/config"
	"github.com/iliyamo/teledl/internal/repository"
	"github.com/iliyamo/teledl/internal/retention"
)

func newTestService(t *testing.T, platforms config.Platforms) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	repo := repository.NewUserAccountRepo(rdb, platforms, retention.Default())
	return New(repo, platforms), mr
}

func TestConsumeAllowanceFreePool(t *testing.T) {
	platforms := config.Platforms{"clips": {ID: "clips", Label: "Clips", FreeLimit: 5}}
	svc, _ := newTestService(t, platforms)
	ctx := context.Background()
	const user = int64(100)

	// Four of five free slots already used.
	for i := 0; i < 4; i++ {
		if _, err := svc.ConsumeAllowance(ctx, user, "clips"); err != nil {
			t.Fatalf("seed consume %d: %v", i, err)
		}
	}

	ok, err := svc.CheckAllowance(ctx, user, "clips")
	if err != nil || !ok {
		t.Fatalf("check = %v, %v; want permitted", ok, err)
	}

	res, err := svc.ConsumeAllowance(ctx, user, "clips")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if res.UsedPremium {
		t.Fatal("free slot available but premium was drawn")
	}
	if res.RemainingFree != 0 {
		t.Fatalf("remaining free = %d, want 0", res.RemainingFree)
	}

	ok, err = svc.CheckAllowance(ctx, user, "clips")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("still permitted after the last free slot with no premium")
	}
}

func TestConsumeAllowancePremiumPool(t *testing.T) {
	platforms := config.Platforms{"clips": {ID: "clips", Label: "Clips", FreeLimit: 1}}
	svc, _ := newTestService(t, platforms)
	ctx := context.Background()
	const user = int64(101)

	if _, err := svc.ConsumeAllowance(ctx, user, "clips"); err != nil {
		t.Fatalf("use the free slot: %v", err)
	}
	if _, err := svc.GrantPremium(ctx, user, "clips", 3); err != nil {
		t.Fatalf("grant: %v", err)
	}

	res, err := svc.ConsumeAllowance(ctx, user, "clips")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !res.UsedPremium {
		t.Fatal("free pool exhausted, expected premium consumption")
	}
	if res.RemainingPremium != 2 {
		t.Fatalf("remaining premium = %d, want 2", res.RemainingPremium)
	}
	if res.RemainingFree != 0 {
		t.Fatalf("remaining free = %d, want 0", res.RemainingFree)
	}
}

func TestExhaustionAndGrantLifecycle(t *testing.T) {
	platforms := config.Platforms{
		"clips":  {ID: "clips", Label: "Clips", FreeLimit: 1},
		"tracks": {ID: "tracks", Label: "Tracks", FreeLimit: 1},
	}
	svc, _ := newTestService(t, platforms)
	ctx := context.Background()
	const user = int64(102)

	if _, err := svc.ConsumeAllowance(ctx, user, "clips"); err != nil {
		t.Fatal(err)
	}
	acct, err := svc.Account(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if acct.PremiumExhaustedAt != nil {
		t.Fatal("marked exhausted while a platform still has allowance")
	}

	if _, err := svc.ConsumeAllowance(ctx, user, "tracks"); err != nil {
		t.Fatal(err)
	}
	acct, err = svc.Account(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if acct.PremiumExhaustedAt == nil {
		t.Fatal("not marked exhausted although every pool is empty")
	}

	// A grant on one platform lifts the account-wide marker.
	if _, err := svc.GrantPremium(ctx, user, "tracks", 10); err != nil {
		t.Fatal(err)
	}
	acct, err = svc.Account(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if acct.PremiumExhaustedAt != nil {
		t.Fatal("marker survived a grant")
	}
	if acct.State("tracks").PremiumCount != 10 {
		t.Fatalf("premium = %d, want 10", acct.State("tracks").PremiumCount)
	}
}

func TestGrantPremiumValidation(t *testing.T) {
	platforms := config.Platforms{"clips": {ID: "clips", Label: "Clips", FreeLimit: 1}}
	svc, _ := newTestService(t, platforms)
	ctx := context.Background()

	for _, count := range []int{0, -5} {
		if _, err := svc.GrantPremium(ctx, 1, "clips", count); err == nil {
			t.Fatalf("grant of %d accepted", count)
		}
	}
	if _, err := svc.GrantPremium(ctx, 1, "nope", 1); !errors.Is(err, repository.ErrUnknownPlatform) {
		t.Fatalf("err = %v, want ErrUnknownPlatform", err)
	}
}

func TestConcurrentConsumeSpendsLastUnitOnce(t *testing.T) {
	platforms := config.Platforms{"clips": {ID: "clips", Label: "Clips", FreeLimit: 1}}
	svc, _ := newTestService(t, platforms)
	ctx := context.Background()
	const user = int64(103)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ConsumeAllowance(ctx, user, "clips")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, denied := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrNoAllowance):
			denied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d consumers succeeded for a single slot, want exactly 1", succeeded)
	}
	if denied != workers-1 {
		t.Fatalf("denied = %d, want %d", denied, workers-1)
	}
}

func TestTouchActivityFirstContact(t *testing.T) {
	platforms := config.Platforms{"clips": {ID: "clips", Label: "Clips", FreeLimit: 2}}
	svc, _ := newTestService(t, platforms)
	ctx := context.Background()
	const user = int64(104)

	if err := svc.TouchActivity(ctx, user); err != nil {
		t.Fatalf("touch: %v", err)
	}
	acct, err := svc.Account(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if acct.LastActivityAt.IsZero() {
		t.Fatal("first contact did not record activity")
	}
	if acct.State("clips").FreeCount != 0 {
		t.Fatal("touch consumed allowance")
	}

	if _, err := svc.ExpiresIn(ctx, user); err != nil {
		t.Fatalf("expires-in after touch: %v", err)
	}
	if _, err := svc.ExpiresIn(ctx, 99999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStorageFailureWrapped(t *testing.T) {
	platforms := config.Platforms{"clips": {ID: "clips", Label: "Clips", FreeLimit: 1}}
	svc, mr := newTestService(t, platforms)
	mr.Close()

	_, err := svc.CheckAllowance(context.Background(), 1, "clips")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	if err := svc.TouchActivity(context.Background(), 1); !errors.Is(err, ErrStorage) {
		t.Fatalf("touch err = %v, want ErrStorage", err)
	}
}
