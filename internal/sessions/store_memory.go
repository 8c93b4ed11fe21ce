package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory with a sliding TTL.
type MemoryStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]memoryEntry
}

type memoryEntry struct {
	ac        ApplicationContext
	expiresAt time.Time
}

// NewMemoryStore constructs a MemoryStore. A ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]memoryEntry),
	}
}

// Get returns the session or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, id string) (ApplicationContext, error) {
	if err := ctx.Err(); err != nil {
		return ApplicationContext{}, err
	}
	s.mu.RLock()
	entry, ok := s.data[id]
	s.mu.RUnlock()
	if !ok || s.expired(entry) {
		return ApplicationContext{}, ErrNotFound
	}
	return entry.ac, nil
}

// Save stores the session and refreshes its expiry.
func (s *MemoryStore) Save(ctx context.Context, ac ApplicationContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	entry := memoryEntry{ac: ac}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.data[ac.ID] = entry
	return nil
}

// Delete removes the session.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

func (s *MemoryStore) sweepLocked() {
	for id, e := range s.data {
		if s.expired(e) {
			delete(s.data, id)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
