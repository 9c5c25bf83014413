// Package jobs runs long operations on a fixed pool of workers and records
// their progress in a status store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/metrics"
	"github.com/local/pdfdesk/internal/pdfengine"
	"github.com/local/pdfdesk/internal/store"
)

var (
	// ErrQueueFull is returned by Submit when no slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("job runner stopped")
	// ErrDiscarded is returned by a job whose result no longer applies. The
	// job ends in the discarded state instead of failed.
	ErrDiscarded = errors.New("job result discarded")
)

// Result is what a successful job reports.
type Result struct {
	Message  string
	Metadata map[string]interface{}
}

// Func is the body of a job. It reports progress through report.
type Func func(ctx context.Context, report pdfengine.ProgressFunc) (*Result, error)

type Config struct {
	Concurrency int
	QueueSize   int
	Timeout     time.Duration
}

type task struct {
	id   string
	kind string
	fn   Func
}

// Runner executes submitted jobs. Jobs never share a worker, so steps inside
// one job are sequential.
type Runner struct {
	cfg      Config
	statuses store.StatusStore
	queue    chan *task

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(cfg Config, statuses store.StatusStore) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Runner{cfg: cfg, statuses: statuses, queue: make(chan *task, cfg.QueueSize)}
}

// Start launches worker goroutines.
func (r *Runner) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	for i := 0; i < r.cfg.Concurrency; i++ {
		r.wg.Add(1)
		go r.loop(workerCtx, i)
	}
}

// Stop cancels running jobs and waits for the workers to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.queue)
	r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, id int) {
	defer r.wg.Done()
	log.Info().Int("worker", id).Msg("job worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("job worker stopped")
			return
		case t, ok := <-r.queue:
			if !ok {
				return
			}
			metrics.SetQueueDepth(len(r.queue))
			r.run(ctx, t)
		}
	}
}

// Submit queues fn and returns the job id.
func (r *Runner) Submit(ctx context.Context, kind string, fn Func) (string, error) {
	t := &task{id: uuid.NewString(), kind: kind, fn: fn}
	if err := r.statuses.Set(ctx, t.id, store.Status{Status: store.StateQueued, Metadata: map[string]interface{}{"kind": kind}}); err != nil {
		return "", fmt.Errorf("record job status: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return "", ErrStopped
	}
	select {
	case r.queue <- t:
		metrics.SetQueueDepth(len(r.queue))
		log.Info().Str("job_id", t.id).Str("kind", kind).Msg("job queued")
		return t.id, nil
	default:
		r.setStatus(t.id, store.Status{Status: store.StateFailed, Message: ErrQueueFull.Error()})
		return "", ErrQueueFull
	}
}

// Status returns the recorded status of a job.
func (r *Runner) Status(ctx context.Context, id string) (store.Status, bool, error) {
	return r.statuses.Get(ctx, id)
}

func (r *Runner) run(ctx context.Context, t *task) {
	start := time.Now()
	meta := map[string]interface{}{"kind": t.kind}
	r.setStatus(t.id, store.Status{Status: store.StateRunning, Start: &start, Metadata: meta})

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	last := -1
	report := func(p pdfengine.Progress) {
		pct := 0
		if p.Total > 0 {
			pct = p.Done * 100 / p.Total
		}
		if pct == last {
			return
		}
		last = pct
		r.setStatus(t.id, store.Status{
			Status:   store.StateRunning,
			Progress: pct,
			Start:    &start,
			Metadata: map[string]interface{}{"kind": t.kind, "done": p.Done, "total": p.Total, "unit": p.Unit},
		})
	}

	res, err := r.safeRun(ctx, t, report)
	end := time.Now()
	switch {
	case errors.Is(err, ErrDiscarded):
		r.setStatus(t.id, store.Status{Status: store.StateDiscarded, Message: "result discarded", Start: &start, End: &end, Metadata: meta})
		log.Info().Str("job_id", t.id).Str("kind", t.kind).Msg("job result discarded")
	case err != nil:
		r.setStatus(t.id, store.Status{Status: store.StateFailed, Message: err.Error(), Start: &start, End: &end, Metadata: meta})
		log.Error().Err(err).Str("job_id", t.id).Str("kind", t.kind).Dur("elapsed", end.Sub(start)).Msg("job failed")
	default:
		if res == nil {
			res = &Result{}
		}
		for k, v := range res.Metadata {
			meta[k] = v
		}
		r.setStatus(t.id, store.Status{Status: store.StateDone, Progress: 100, Message: res.Message, Start: &start, End: &end, Metadata: meta})
		log.Info().Str("job_id", t.id).Str("kind", t.kind).Dur("elapsed", end.Sub(start)).Msg("job done")
	}
}

func (r *Runner) safeRun(ctx context.Context, t *task, report pdfengine.ProgressFunc) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("job_id", t.id).Msg("job panicked")
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return t.fn(ctx, report)
}

func (r *Runner) setStatus(id string, st store.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.statuses.Set(ctx, id, st); err != nil {
		log.Warn().Err(err).Str("job_id", id).Msg("status update failed")
	}
}
