package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownJobType is returned by Mux for job types without a handler.
var ErrUnknownJobType = errors.New("unknown job type")

// Job is a unit of background work. Jobs sharing a non-empty Key are coalesced while one
// of them is still waiting in the buffer.
type Job struct {
	ID       string
	Type     string
	Key      string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// Mux routes jobs to handlers by type.
type Mux map[string]Handler

// Handle dispatches job to the handler registered for its type.
func (m Mux) Handle(ctx context.Context, job Job) error {
	handler, ok := m[job.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}
	return handler(ctx, job)
}

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// QueueStats is a point-in-time view of queue activity.
type QueueStats struct {
	Pending   int    `json:"pending"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Coalesced uint64 `json:"coalesced"`
}

// Queue is an in-memory job dispatcher backed by a fixed pool of goroutines.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	pending map[string]struct{}

	processed atomic.Uint64
	failed    atomic.Uint64
	coalesced atomic.Uint64
}

// NewQueue builds a queue that feeds every job to handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
		pending: make(map[string]struct{}),
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers), zap.Int("buffer", q.cfg.BufferSize))
}

// Stop cancels workers and waits for them to exit. Buffered jobs are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.Int("dropped", len(q.jobs)))
}

// Enqueue buffers a job without blocking. A full buffer is reported as an error.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if err := q.ctx.Err(); err != nil {
		return fmt.Errorf("queue %s stopped: %w", q.name, err)
	}
	if job.Key != "" {
		if _, waiting := q.pending[job.Key]; waiting {
			q.coalesced.Add(1)
			return nil
		}
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.jobs <- job:
		if job.Key != "" {
			q.pending[job.Key] = struct{}{}
		}
		return nil
	default:
		return fmt.Errorf("queue %s full", q.name)
	}
}

// Stats reports buffered jobs and lifetime counters.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Pending:   len(q.jobs),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Coalesced: q.coalesced.Load(),
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.release(job)
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
				continue
			}
			q.processed.Add(1)
		}
	}
}

func (q *Queue) release(job Job) {
	if job.Key == "" {
		return
	}
	q.mu.Lock()
	delete(q.pending, job.Key)
	q.mu.Unlock()
}

func (q *Queue) handleFailure(job Job, err error) {
	fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err)}
	if errors.Is(err, ErrUnknownJobType) || job.Attempt >= q.cfg.MaxRetries {
		q.failed.Add(1)
		q.logger.Error("job failed", append(fields, zap.Int("attempts", job.Attempt+1))...)
		return
	}
	job.Attempt++
	q.logger.Warn("job failed, retrying", append(fields, zap.Int("attempt", job.Attempt))...)

	go func(j Job) {
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.failed.Add(1)
				q.logger.Error("failed to requeue job", zap.String("job_id", j.ID), zap.Error(err))
			}
		}
	}(job)
}
