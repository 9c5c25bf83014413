// Package artifact keeps finished downloads until they are claimed.
package artifact

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/metrics"
)

// DefaultTTL is how long an unclaimed artifact is kept.
const DefaultTTL = 15 * time.Minute

// ErrNotFound is returned for unknown, claimed or expired artifacts.
var ErrNotFound = errors.New("artifact not found")

// Artifact is one finished download.
type Artifact struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	Created     time.Time `json:"created"`
	Data        []byte    `json:"-"`
}

// Store holds artifacts in memory. Take hands an artifact out once and
// drops the store's reference to it.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	items map[string]*Artifact
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{ttl: ttl, now: time.Now, items: make(map[string]*Artifact)}
}

// Put registers a download and returns its metadata.
func (s *Store) Put(name, contentType string, data []byte) Artifact {
	a := &Artifact{
		ID:          uuid.NewString(),
		Name:        name,
		ContentType: contentType,
		Size:        len(data),
		Created:     s.now(),
		Data:        data,
	}
	s.mu.Lock()
	s.items[a.ID] = a
	s.mu.Unlock()
	metrics.IncArtifact("produced")
	meta := *a
	meta.Data = nil
	return meta
}

// Take returns the artifact and forgets it.
func (s *Store) Take(id string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.items, id)
	if s.now().Sub(a.Created) >= s.ttl {
		metrics.IncArtifact("expired")
		return nil, ErrNotFound
	}
	metrics.IncArtifact("claimed")
	return a, nil
}

// Len returns the number of unclaimed artifacts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes artifacts older than the TTL and returns how many it dropped.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, a := range s.items {
		if now.Sub(a.Created) >= s.ttl {
			delete(s.items, id)
			n++
		}
	}
	for i := 0; i < n; i++ {
		metrics.IncArtifact("expired")
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				log.Info().Int("expired", n).Msg("expired unclaimed artifacts")
			}
		}
	}
}
