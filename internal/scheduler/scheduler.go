// Package scheduler runs an idempotent task on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Task func(ctx context.Context) error

// Runner invokes Task every Interval. Runs never overlap: a tick that fires
// while a run is in progress is dropped by the ticker.
type Runner struct {
	name     string
	interval time.Duration
	task     Task
	logger   *zap.Logger
	onStart  bool
}

type Option func(*Runner)

// RunOnStart runs the task once before the first tick.
func RunOnStart() Option {
	return func(r *Runner) { r.onStart = true }
}

func New(name string, interval time.Duration, task Task, logger *zap.Logger, opts ...Option) (*Runner, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler %s: interval must be positive", name)
	}
	if task == nil {
		return nil, fmt.Errorf("scheduler %s: nil task", name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.Named("scheduler").With(zap.String("task", name)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run blocks until ctx is done. Task failures are logged and the schedule
// continues.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("scheduler started", zap.Duration("interval", r.interval))
	if r.onStart {
		r.runOnce(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("scheduled task panicked", zap.Any("panic", p))
		}
	}()

	err := r.task(ctx)
	switch {
	case err == nil:
		r.logger.Info("scheduled task finished", zap.Duration("elapsed", time.Since(start)))
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		r.logger.Info("scheduled task interrupted by shutdown")
	default:
		r.logger.Error("scheduled task failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
	}
}
