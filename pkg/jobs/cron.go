package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a unit of periodic work. Errors are logged, never retried.
type Task func(ctx context.Context) error

// Cron runs named tasks on standard five-field cron expressions.
type Cron struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]cron.EntryID
}

// NewCron builds a scheduler that recovers panics raised by tasks.
func NewCron(logger *zap.Logger) *Cron {
	if logger == nil {
		logger = zap.NewNop()
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// Register schedules task under name. Registering the same name twice is an error.
func (c *Cron) Register(name, spec string, task Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("cron task %s already registered", name)
	}
	id, err := c.cron.AddFunc(spec, func() {
		c.run(name, task)
	})
	if err != nil {
		return fmt.Errorf("schedule cron task %s: %w", name, err)
	}
	c.entries[name] = id
	c.logger.Sugar().Infow("cron task registered", "task", name, "schedule", spec)
	return nil
}

// Start begins firing registered tasks.
func (c *Cron) Start() {
	c.cron.Start()
	c.logger.Sugar().Infow("cron started", "tasks", len(c.entries))
}

// Stop halts the scheduler and waits for running tasks to finish.
func (c *Cron) Stop() {
	c.cancel()
	<-c.cron.Stop().Done()
	c.logger.Sugar().Infow("cron stopped")
}

func (c *Cron) run(name string, task Task) {
	if err := task(c.ctx); err != nil {
		c.logger.Sugar().Errorw("cron task failed", "task", name, "error", err)
	}
}
