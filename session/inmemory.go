package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	sessions map[string]*memorySession
	mu       sync.RWMutex
}

// NewInMemorySessionStore returns a process-local session store. Sessions are
// evicted lazily: an expired session is deleted on lookup, so the map does not
// grow past the working set of live sessions.
func NewInMemorySessionStore() Store {
	return &memoryStore{sessions: make(map[string]*memorySession)}
}

func (store *memoryStore) EnsureSession(id string, ttl time.Duration) (Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if id != "" {
		if sess, ok := store.sessions[id]; ok {
			if sess.expired() {
				delete(store.sessions, id)
			} else {
				sess.Expire(ttl)
				return sess, nil
			}
		}
	}

	sess := &memorySession{id: uuid.NewString()}
	sess.Expire(ttl)
	store.sessions[sess.id] = sess
	return sess, nil
}

func (store *memoryStore) GetSession(id string) (Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	sess, ok := store.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if sess.expired() {
		delete(store.sessions, id)
		return nil, ErrNotFound
	}
	return sess, nil
}

type memorySession struct {
	id        string
	expiresAt time.Time
	current   Snapshot
	hasPlan   bool
	editing   bool
	mu        sync.Mutex
}

func (s *memorySession) ID() string { return s.id }

func (s *memorySession) Expire(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = time.Now().Add(ttl)
}

func (s *memorySession) expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().After(s.expiresAt)
}

func (s *memorySession) Current() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasPlan
}

func (s *memorySession) Replace(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = snap
	s.hasPlan = true
	return nil
}

func (s *memorySession) BeginEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing {
		return ErrEditInFlight
	}
	s.editing = true
	return nil
}

func (s *memorySession) EndEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = false
}
