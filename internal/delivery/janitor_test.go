package delivery

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/teledl/internal/model"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []int
	done  chan struct{}
}

func (n *recordingNotifier) ArtifactRemoved(chatID int64, messageRef int) {
	n.mu.Lock()
	n.calls = append(n.calls, messageRef)
	n.mu.Unlock()
	n.done <- struct{}{}
}

func tempFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScheduleDeletesAndNotifies(t *testing.T) {
	dir := t.TempDir()
	path := tempFile(t, dir, "a.mp4")
	notifier := &recordingNotifier{done: make(chan struct{}, 1)}
	jan := NewJanitor(20*time.Millisecond, notifier)

	jan.Schedule(model.DeliveredArtifact{FilePath: path, MessageRef: 9}, 1)
	if jan.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", jan.Pending())
	}

	select {
	case <-notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("deletion never fired")
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file still on disk after the timer fired")
	}
	if jan.Pending() != 0 {
		t.Fatalf("pending = %d after firing", jan.Pending())
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.calls) != 1 || notifier.calls[0] != 9 {
		t.Fatalf("notifier calls = %v", notifier.calls)
	}
}

func TestScheduleDeduplicatesByPath(t *testing.T) {
	path := tempFile(t, t.TempDir(), "a.mp4")
	jan := NewJanitor(time.Hour, nil)
	defer jan.Stop()

	jan.Schedule(model.DeliveredArtifact{FilePath: path}, 1)
	jan.Schedule(model.DeliveredArtifact{FilePath: path}, 1)
	if jan.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", jan.Pending())
	}
}

func TestStopCancelsTimers(t *testing.T) {
	path := tempFile(t, t.TempDir(), "a.mp4")
	jan := NewJanitor(30*time.Millisecond, nil)

	jan.Schedule(model.DeliveredArtifact{FilePath: path}, 1)
	jan.Stop()
	if jan.Pending() != 0 {
		t.Fatalf("pending = %d after stop", jan.Pending())
	}

	time.Sleep(80 * time.Millisecond)
	if _, err := os.Stat(path); err != nil {
		t.Fatal("stopped janitor still deleted the file")
	}
}

func TestRemoveIsBestEffort(t *testing.T) {
	path := tempFile(t, t.TempDir(), "a.mp4")
	jan := NewJanitor(time.Hour, nil)

	jan.Remove(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file not removed")
	}
	// Missing files and empty paths are not errors.
	jan.Remove(path)
	jan.Remove("")
}

func TestSweepOrphans(t *testing.T) {
	dir := t.TempDir()
	tempFile(t, dir, "a.mp4")
	tempFile(t, dir, "b.bin")
	if err := os.Mkdir(filepath.Join(dir, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}

	if n := SweepOrphans(dir); n != 2 {
		t.Fatalf("removed = %d, want 2", n)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		t.Fatalf("unexpected leftovers: %v", entries)
	}

	if n := SweepOrphans(filepath.Join(dir, "missing")); n != 0 {
		t.Fatalf("sweep of a missing dir removed %d", n)
	}
}
