package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vacciassist/internal/domain"
)

type entry struct {
	mu       sync.Mutex
	session  *Session
	lastUsed time.Time
}

// Store keeps isolated sessions for a multi-user host. Interactions on one
// session run one at a time; different sessions proceed in parallel.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	factory  func() *Session
	now      func() time.Time
	logger   *slog.Logger
}

// NewStore creates an empty store; factory builds each new session.
func NewStore(factory func() *Session) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		factory:  factory,
		now:      time.Now,
		logger:   slog.Default().With("component", "session-store"),
	}
}

// Create starts a new session and returns its id.
func (st *Store) Create() string {
	id := uuid.NewString()
	st.mu.Lock()
	st.sessions[id] = &entry{session: st.factory(), lastUsed: st.now()}
	st.mu.Unlock()
	st.logger.Debug("session created", "id", id)
	return id
}

// Delete discards a session and its index.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

// With runs fn with exclusive access to the session.
func (st *Store) With(id string, fn func(*Session) error) error {
	st.mu.RLock()
	e, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = st.now()
	return fn(e.session)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep discards sessions idle for longer than maxIdle and returns how many
// were removed. Sessions busy in With are skipped.
func (st *Store) Sweep(maxIdle time.Duration) int {
	cutoff := st.now().Add(-maxIdle)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, e := range st.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if e.lastUsed.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
		e.mu.Unlock()
	}
	if removed > 0 {
		st.logger.Info("idle sessions discarded", "count", removed)
	}
	return removed
}
