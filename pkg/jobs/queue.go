// Package jobs runs fire-and-forget background work, primarily the audit
// trail writes that must never add latency to a request.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of background work. Kind labels it for logging (the audit
// queue uses the audit action).
type Job struct {
	ID         string
	Kind       string
	Payload    interface{}
	Attempts   int
	EnqueuedAt time.Time
}

// Handler processes one job. A non-nil error triggers a retry.
type Handler func(context.Context, Job) error

// Options tunes the worker pool. Zero values get sensible defaults.
type Options struct {
	Workers int
	Buffer  int
	Retries int
	Backoff time.Duration
	Logger  *zap.Logger
}

// Queue is an in-memory worker pool. Stopping it flushes whatever is still
// buffered, so late audit entries are written rather than dropped.
type Queue struct {
	name    string
	handler Handler
	retries int
	backoff time.Duration
	logger  *zap.Logger

	jobs    chan Job
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a queue around the handler.
func NewQueue(name string, handler Handler, opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = opts.Workers * 4
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Queue{
		name:    name,
		handler: handler,
		retries: opts.Retries,
		backoff: opts.Backoff,
		logger:  opts.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, opts.Buffer),
		workers: opts.Workers,
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop signals the workers, waits for them to flush the buffer and exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue pushes a job onto the buffer. It blocks when the buffer is full
// and fails when the queue was never started or is shutting down.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			q.flush()
			return
		case job := <-q.jobs:
			q.process(q.ctx, job)
		}
	}
}

// flush empties the buffer after shutdown was signalled. The detached
// context keeps the handler usable while the queue context is cancelled.
func (q *Queue) flush() {
	ctx := context.WithoutCancel(q.ctx)
	for {
		select {
		case job := <-q.jobs:
			q.process(ctx, job)
		default:
			return
		}
	}
}

func (q *Queue) process(ctx context.Context, job Job) {
	for {
		err := q.handler(ctx, job)
		if err == nil {
			return
		}
		job.Attempts++
		if job.Attempts > q.retries {
			q.logger.Error("job dropped after retries",
				zap.String("job_id", job.ID), zap.String("kind", job.Kind), zap.Error(err))
			return
		}
		q.logger.Warn("job failed, retrying",
			zap.String("job_id", job.ID), zap.String("kind", job.Kind),
			zap.Int("attempt", job.Attempts), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(q.backoff):
		}
	}
}
