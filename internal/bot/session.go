package bot

import "sync"

// StateKind enumerates what the bot expects next from a user.
type StateKind int

const (
	// StateNone: no pending interaction; links are rejected until a
	// platform is chosen.
	StateNone StateKind = iota
	// StateAwaitLink: the user picked a platform and the next message is
	// treated as a download link.
	StateAwaitLink
	// StateAwaitUTR: the user pressed "I have paid" and the next message is
	// treated as a payment reference.
	StateAwaitUTR
)

// State is one user's current interaction state.
type State struct {
	Kind     StateKind
	Platform string // set when Kind == StateAwaitLink
}

// SessionStore keeps per-user interaction state in process memory, keyed by
// Telegram user ID. It is intentionally not persisted: after a restart every
// user simply restarts their flow from the menu. The store is bounded so a
// flood of one-message strangers cannot grow it without limit.
type SessionStore struct {
	mu  sync.RWMutex
	m   map[int64]State
	max int
}

// NewSessionStore creates a store bounded to max entries (0 means a default
// of 10000).
func NewSessionStore(max int) *SessionStore {
	if max <= 0 {
		max = 10000
	}
	return &SessionStore{m: make(map[int64]State), max: max}
}

// Get returns the user's current state, StateNone when unknown.
func (s *SessionStore) Get(userID int64) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[userID]
}

// Set stores the user's state. When the store is full and the user is new,
// an arbitrary existing entry is evicted; the evicted user falls back to the
// menu on their next message, which is the same recovery path as a restart.
func (s *SessionStore) Set(userID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[userID]; !ok && len(s.m) >= s.max {
		for k := range s.m {
			delete(s.m, k)
			break
		}
	}
	s.m[userID] = st
}

// Clear removes the user's state.
func (s *SessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}

// Len reports the number of tracked users.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
