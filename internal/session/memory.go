package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Used when no Redis is configured
// and in tests.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
	claims  map[uuid.UUID]time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose entries expire ttl after their last save.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]memoryEntry),
		claims:  make(map[uuid.UUID]time.Time),
	}
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	m.entries[s.ID] = memoryEntry{session: *s, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, id)
		return nil, ErrNotFound
	}
	s := e.session
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, id)
	delete(m.claims, id)
	return nil
}

func (m *MemoryStore) Claim(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiresAt, ok := m.claims[id]; ok && now.Before(expiresAt) {
		return false, nil
	}
	m.claims[id] = now.Add(m.ttl)
	return true, nil
}

func (m *MemoryStore) Release(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.claims, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) sweep(now time.Time) {
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, id)
		}
	}
	for id, expiresAt := range m.claims {
		if !now.Before(expiresAt) {
			delete(m.claims, id)
		}
	}
}
