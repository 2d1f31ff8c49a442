package delivery

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iliyamo/teledl/internal/logging"
	"github.com/iliyamo/teledl/internal/model"
)

// RemovalNotifier is told after a scheduled deletion has removed a delivered
// file, so the user can be warned their copy is gone from the server.
// Implementations are fire-and-forget; failures are theirs to log.
type RemovalNotifier interface {
	ArtifactRemoved(chatID int64, messageRef int)
}

// Janitor owns ephemeral artifact files after delivery. Each delivered file
// gets one deferred deletion task; failure paths use Remove for immediate
// best-effort cleanup. Schedules live only in memory — a restart between
// scheduling and firing is an accepted loss window, bounded by the delay and
// mopped up by SweepOrphans on the next start.
type Janitor struct {
	delay    time.Duration
	notifier RemovalNotifier

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewJanitor creates a janitor that deletes delivered files after delay.
func NewJanitor(delay time.Duration, notifier RemovalNotifier) *Janitor {
	return &Janitor{
		delay:    delay,
		notifier: notifier,
		timers:   make(map[string]*time.Timer),
	}
}

// Schedule queues deletion of the delivered artifact after the configured
// delay. The task runs on its own timer goroutine, decoupled from the
// request that created it.
func (j *Janitor) Schedule(a model.DeliveredArtifact, chatID int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, exists := j.timers[a.FilePath]; exists {
		return
	}
	j.timers[a.FilePath] = time.AfterFunc(j.delay, func() {
		j.fire(a, chatID)
	})
}

func (j *Janitor) fire(a model.DeliveredArtifact, chatID int64) {
	j.mu.Lock()
	delete(j.timers, a.FilePath)
	j.mu.Unlock()

	if err := os.Remove(a.FilePath); err != nil && !os.IsNotExist(err) {
		logging.Delivery.Printf("scheduled deletion of %s failed: %v", a.FilePath, err)
		return
	}
	logging.Delivery.Printf("deleted delivered file %s", a.FilePath)
	if j.notifier != nil {
		j.notifier.ArtifactRemoved(chatID, a.MessageRef)
	}
}

// Remove deletes a file immediately, best-effort. Used on failure paths
// where the artifact was never delivered; errors are logged, not surfaced.
func (j *Janitor) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Delivery.Printf("cleanup of %s failed: %v", path, err)
	}
}

// Pending reports how many deletion tasks are currently scheduled.
func (j *Janitor) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.timers)
}

// Stop cancels all outstanding timers. Files not yet deleted stay on disk
// for the next startup sweep.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for path, t := range j.timers {
		t.Stop()
		delete(j.timers, path)
	}
}

// SweepOrphans removes every regular file in the staging directory. Called
// once at startup to reclaim artifacts whose deletion schedule was lost to a
// crash or restart. Returns the number of files removed.
func SweepOrphans(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed
}
