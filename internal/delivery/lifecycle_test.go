package delivery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iliyamo/teledl/internal/downloader"
	"github.com/iliyamo/teledl/internal/ledger"
	"github.com/iliyamo/teledl/internal/model"
)

type fakeLedger struct {
	permitted  bool
	checkErr   error
	consumeErr error
	consumed   int
	result     *ledger.ConsumptionResult
}

func (f *fakeLedger) CheckAllowance(ctx context.Context, userID int64, platform string) (bool, error) {
	return f.permitted, f.checkErr
}

func (f *fakeLedger) ConsumeAllowance(ctx context.Context, userID int64, platform string) (*ledger.ConsumptionResult, error) {
	f.consumed++
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	return f.result, nil
}

type fakeFetcher struct {
	artifact *downloader.Artifact
	err      error
	calls    int
}

func (f *fakeFetcher) Fetch(ctx context.Context, link string) (*downloader.Artifact, error) {
	f.calls++
	return f.artifact, f.err
}

type fakeTransport struct {
	err       error
	msgRef    int
	delivered int
	// consumedAtDeliver records the ledger's consume count at the moment of
	// delivery, to assert the commit happens strictly afterwards.
	consumedAtDeliver int
	ledger            *fakeLedger
}

func (f *fakeTransport) Deliver(ctx context.Context, chatID int64, a downloader.Artifact, caption string) (int, error) {
	f.delivered++
	if f.ledger != nil {
		f.consumedAtDeliver = f.ledger.consumed
	}
	if f.err != nil {
		return 0, f.err
	}
	return f.msgRef, nil
}

func writeArtifact(t *testing.T) *downloader.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &downloader.Artifact{Path: path, SizeBytes: 7}
}

func testRequest() model.DownloadRequest {
	return model.DownloadRequest{UserID: 1, ChatID: 2, Platform: "clips", SourceLink: "https://example.com/x"}
}

func TestHandleDenied(t *testing.T) {
	led := &fakeLedger{permitted: false}
	fetch := &fakeFetcher{}
	m := NewManager(led, map[string]downloader.Fetcher{"clips": fetch}, &fakeTransport{}, NewJanitor(time.Hour, nil))

	_, err := m.Handle(context.Background(), testRequest(), "")
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("err = %v, want ErrDenied", err)
	}
	if fetch.calls != 0 {
		t.Fatal("fetch ran for a denied request")
	}
	if led.consumed != 0 {
		t.Fatal("allowance consumed for a denied request")
	}
}

func TestHandleFetchFailure(t *testing.T) {
	led := &fakeLedger{permitted: true}
	fetch := &fakeFetcher{err: errors.New("source returned 404")}
	m := NewManager(led, map[string]downloader.Fetcher{"clips": fetch}, &fakeTransport{}, NewJanitor(time.Hour, nil))

	_, err := m.Handle(context.Background(), testRequest(), "")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if led.consumed != 0 {
		t.Fatal("allowance consumed although nothing was delivered")
	}
}

func TestHandleDeliveryFailureCleansUp(t *testing.T) {
	led := &fakeLedger{permitted: true}
	art := writeArtifact(t)
	fetch := &fakeFetcher{artifact: art}
	trans := &fakeTransport{err: errors.New("chat not reachable")}
	m := NewManager(led, map[string]downloader.Fetcher{"clips": fetch}, trans, NewJanitor(time.Hour, nil))

	_, err := m.Handle(context.Background(), testRequest(), "")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("err = %v, want ErrDeliveryFailed", err)
	}
	if led.consumed != 0 {
		t.Fatal("allowance consumed for a failed delivery")
	}
	if _, statErr := os.Stat(art.Path); !os.IsNotExist(statErr) {
		t.Fatal("undelivered artifact left on disk")
	}
}

func TestHandleSuccess(t *testing.T) {
	led := &fakeLedger{
		permitted: true,
		result:    &ledger.ConsumptionResult{RemainingFree: 3},
	}
	art := writeArtifact(t)
	fetch := &fakeFetcher{artifact: art}
	trans := &fakeTransport{msgRef: 77, ledger: led}
	jan := NewJanitor(time.Hour, nil)
	m := NewManager(led, map[string]downloader.Fetcher{"clips": fetch}, trans, jan)

	receipt, err := m.Handle(context.Background(), testRequest(), "enjoy")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if led.consumed != 1 {
		t.Fatalf("consume calls = %d, want 1", led.consumed)
	}
	if trans.consumedAtDeliver != 0 {
		t.Fatal("allowance was consumed before delivery completed")
	}
	if receipt.Artifact.MessageRef != 77 || receipt.Artifact.FilePath != art.Path {
		t.Fatalf("receipt artifact = %+v", receipt.Artifact)
	}
	if receipt.Consumption.RemainingFree != 3 {
		t.Fatalf("receipt consumption = %+v", receipt.Consumption)
	}
	if jan.Pending() != 1 {
		t.Fatalf("pending deletions = %d, want 1", jan.Pending())
	}
}

func TestHandleConsumeFailureAfterDelivery(t *testing.T) {
	led := &fakeLedger{permitted: true, consumeErr: ledger.ErrNoAllowance}
	art := writeArtifact(t)
	fetch := &fakeFetcher{artifact: art}
	jan := NewJanitor(time.Hour, nil)
	m := NewManager(led, map[string]downloader.Fetcher{"clips": fetch}, &fakeTransport{msgRef: 5}, jan)

	_, err := m.Handle(context.Background(), testRequest(), "")
	if !errors.Is(err, ledger.ErrNoAllowance) {
		t.Fatalf("err = %v, want the consume failure surfaced", err)
	}
	// The user has the file either way; it still gets a deletion schedule.
	if jan.Pending() != 1 {
		t.Fatalf("pending deletions = %d, want 1", jan.Pending())
	}
}

func TestHandleUnknownPlatformFetcher(t *testing.T) {
	led := &fakeLedger{permitted: true}
	m := NewManager(led, map[string]downloader.Fetcher{}, &fakeTransport{}, NewJanitor(time.Hour, nil))

	_, err := m.Handle(context.Background(), testRequest(), "")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
}
