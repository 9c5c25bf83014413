package store

import (
	"context"
	"maps"
	"sync"
	"time"
)

type memoryEntry struct {
	st      Status
	updated time.Time
}

// MemoryStatus keeps job status in process memory. It is used when no Redis
// URL is configured.
type MemoryStatus struct {
	mu   sync.Mutex
	jobs map[string]memoryEntry
	ttl  time.Duration
}

func NewMemoryStatus(ttl time.Duration) *MemoryStatus {
	return &MemoryStatus{jobs: make(map[string]memoryEntry), ttl: ttl}
}

func (s *MemoryStatus) Set(ctx context.Context, jobID string, st Status) error {
	st.Metadata = maps.Clone(st.Metadata)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = memoryEntry{st: st, updated: time.Now()}
	return nil
}

func (s *MemoryStatus) Get(ctx context.Context, jobID string) (Status, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[jobID]
	if !ok {
		return Status{}, false, nil
	}
	if s.ttl > 0 && time.Since(e.updated) > s.ttl {
		delete(s.jobs, jobID)
		return Status{}, false, nil
	}
	st := e.st
	st.Metadata = maps.Clone(st.Metadata)
	return st, true, nil
}

// Cleanup removes expired entries.
func (s *MemoryStatus) Cleanup() {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, e := range s.jobs {
		if now.Sub(e.updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (s *MemoryStatus) Close() error { return nil }
