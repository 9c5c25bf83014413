package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
)

const (
	axiomBuffer    = 1000
	axiomBatchSize = 200
)

// ingester is the part of the Axiom client the shipper uses.
type ingester interface {
	IngestEvents(ctx context.Context, id string, events []axiom.Event, options ...ingest.Option) (*ingest.Status, error)
}

func newAxiomIngester(token, orgID string) (ingester, error) {
	opts := []axiom.Option{axiom.SetToken(token)}
	if orgID != "" {
		opts = append(opts, axiom.SetOrganizationID(orgID))
	}
	return axiom.NewClient(opts...)
}

// axiomShipper turns zerolog JSON lines into Axiom events and ingests them in
// batches. Events are dropped when the buffer is full.
type axiomShipper struct {
	client  ingester
	dataset string
	events  chan axiom.Event
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Int64
}

func newAxiomShipper(client ingester, dataset string, flushEvery time.Duration) *axiomShipper {
	if flushEvery <= 0 {
		flushEvery = 10 * time.Second
	}
	s := &axiomShipper{
		client:  client,
		dataset: dataset,
		events:  make(chan axiom.Event, axiomBuffer),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run(flushEvery)
	return s
}

func (s *axiomShipper) Write(p []byte) (int, error) {
	ev := axiom.Event{}
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = axiom.Event{"message": string(p), "level": "info"}
	}
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
	}
	return len(p), nil
}

func (s *axiomShipper) run(flushEvery time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	batch := make([]axiom.Event, 0, axiomBatchSize)
	ship := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		_, _ = s.client.IngestEvents(ctx, s.dataset, batch)
		cancel()
		batch = make([]axiom.Event, 0, axiomBatchSize)
	}
	for {
		select {
		case ev := <-s.events:
			if batch = append(batch, ev); len(batch) >= axiomBatchSize {
				ship()
			}
		case <-ticker.C:
			ship()
		case <-s.done:
			for {
				select {
				case ev := <-s.events:
					batch = append(batch, ev)
				default:
					ship()
					return
				}
			}
		}
	}
}

// Dropped reports how many events did not fit in the buffer.
func (s *axiomShipper) Dropped() int64 { return s.dropped.Load() }

// Close ships what is buffered and stops the shipper.
func (s *axiomShipper) Close() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		if n := s.Dropped(); n > 0 {
			fmt.Fprintf(os.Stderr, "axiom: %d log events dropped\n", n)
		}
	})
}
