// Package session keeps one form.State per browser session.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/liamcoop/homeloan/form"
	"github.com/liamcoop/homeloan/internal/metrics"
)

// ErrNotFound is returned by Load when no state is stored for an ID.
var ErrNotFound = errors.New("session not found")

// Store persists form state by session ID
type Store interface {
	// Load returns the state saved for id, or ErrNotFound
	Load(ctx context.Context, id string) (form.State, error)

	// Save stores state for id, replacing any previous state
	Save(ctx context.Context, id string, state form.State) error

	// Delete removes the state for id
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	state   form.State
	savedAt time.Time
}

// MemoryStore keeps sessions in process memory.
// Thread-safe with RWMutex
type MemoryStore struct {
	sessions map[string]memoryEntry
	ttl      time.Duration
	mu       sync.RWMutex
}

// NewMemoryStore creates an in-memory store. Sessions idle for longer than
// ttl are treated as missing; ttl 0 keeps them forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
	}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (form.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok || s.expired(e) {
		return form.State{}, ErrNotFound
	}
	return copyState(e.state), nil
}

func (s *MemoryStore) Save(ctx context.Context, id string, state form.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = memoryEntry{state: copyState(state), savedAt: time.Now()}
	s.sweep()
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.sessions {
		if !s.expired(e) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return s.ttl > 0 && time.Since(e.savedAt) > s.ttl
}

// sweep drops expired sessions. Callers hold the write lock.
func (s *MemoryStore) sweep() {
	if s.ttl == 0 {
		return
	}
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
		}
	}
}

func copyState(st form.State) form.State {
	c := st
	c.Values = make(map[string]string, len(st.Values))
	for k, v := range st.Values {
		c.Values[k] = v
	}
	return c
}
