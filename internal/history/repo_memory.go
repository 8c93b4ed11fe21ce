package history

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo keeps the most recent entries per session in memory. With a
// ttl, a session's entries are dropped once it has been idle that long, the
// same lifetime the session store gives the session itself.
type MemoryRepo struct {
	mu        sync.RWMutex
	data      map[string]*memoryLog
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type memoryLog struct {
	entries []Entry // oldest first
	touched time.Time
}

// NewMemoryRepo constructs a MemoryRepo. A ttl <= 0 keeps entries for the
// life of the process.
func NewMemoryRepo(ttl time.Duration) *MemoryRepo {
	return &MemoryRepo{data: make(map[string]*memoryLog), ttl: ttl, now: time.Now}
}

// Append stores the entry and drops the oldest beyond Limit.
func (r *MemoryRepo) Append(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep(now)

	bucket := r.data[entry.SessionID]
	if bucket == nil || r.expired(bucket, now) {
		bucket = &memoryLog{}
		r.data[entry.SessionID] = bucket
	}
	entries := append(bucket.entries, entry)
	if len(entries) > Limit {
		entries = append([]Entry(nil), entries[len(entries)-Limit:]...)
	}
	bucket.entries = entries
	bucket.touched = now
	return nil
}

// Recent returns up to limit entries for the session, newest first.
func (r *MemoryRepo) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.data[sessionID]
	if bucket == nil || r.expired(bucket, r.now()) {
		return newestFirst(nil, clampLimit(limit)), nil
	}
	return newestFirst(bucket.entries, clampLimit(limit)), nil
}

// Sessions reports how many session logs are held.
func (r *MemoryRepo) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

func (r *MemoryRepo) expired(bucket *memoryLog, now time.Time) bool {
	return r.ttl > 0 && now.Sub(bucket.touched) > r.ttl
}

// sweep drops idle logs at most once per minute. Callers hold the write lock.
func (r *MemoryRepo) sweep(now time.Time) {
	if r.ttl <= 0 || now.Sub(r.lastSweep) < time.Minute {
		return
	}
	r.lastSweep = now
	for id, bucket := range r.data {
		if r.expired(bucket, now) {
			delete(r.data, id)
		}
	}
}

var _ Repo = (*MemoryRepo)(nil)
