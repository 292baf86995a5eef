// Package scheduler runs batches of transcription jobs under a concurrency
// ceiling. Jobs are admitted in submission order, outcomes are returned in
// submission order, and one job's failure never affects its siblings unless
// fail-fast is enabled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"transcriptor/internal/job"
	"transcriptor/internal/logging"
	"transcriptor/internal/services"
)

// ErrFailFast is the cancellation cause when a batch stops after a failure.
var ErrFailFast = errors.New("batch stopped after a failed job")

// Runner drives individual jobs. *job.Controller implements it.
type Runner interface {
	Run(ctx context.Context, index int, spec job.Spec) job.Outcome
	Cancelled(ctx context.Context, index int, spec job.Spec) job.Outcome
}

// Options configure a Scheduler.
type Options struct {
	MaxConcurrent int
	FailFast      bool
}

// Scheduler admits jobs to a Runner.
type Scheduler struct {
	runner   Runner
	limit    int
	failFast bool
	logger   *slog.Logger
	newID    func() string
}

// New builds a Scheduler. MaxConcurrent below one is treated as one.
func New(runner Runner, opts Options, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		limit:    max(opts.MaxConcurrent, 1),
		failFast: opts.FailFast,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		newID:    uuid.NewString,
	}
}

// Run executes specs and returns one outcome per spec, in input order. It
// returns only after every job has reached a terminal state. Cancelling ctx
// cancels active jobs and marks jobs that were never admitted as cancelled.
func (s *Scheduler) Run(ctx context.Context, specs []job.Spec) []job.Outcome {
	outcomes := make([]job.Outcome, len(specs))
	if len(specs) == 0 {
		return outcomes
	}

	ctx = services.WithBatchID(ctx, s.newID())
	logger := logging.WithContext(ctx, s.logger)
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	started := time.Now()
	logger.Info("batch started",
		logging.Int("jobs", len(specs)),
		logging.Int("max_concurrent", s.limit),
		logging.Bool("fail_fast", s.failFast),
	)

	sem := semaphore.NewWeighted(int64(s.limit))
	var wg sync.WaitGroup
	for i, spec := range specs {
		if !s.admit(runCtx, sem) {
			for j := i; j < len(specs); j++ {
				outcomes[j] = s.runner.Cancelled(runCtx, j, specs[j])
			}
			logger.Info("batch cancelled before all jobs were admitted",
				logging.Int("not_admitted", len(specs)-i),
				logging.String("cause", fmt.Sprint(context.Cause(runCtx))),
			)
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			out := s.runJob(runCtx, logger, i, spec)
			outcomes[i] = out
			if s.failFast && out.State == job.StateFailed {
				cancel(ErrFailFast)
			}
		}()
	}
	wg.Wait()

	summary := Summarize(outcomes)
	logger.Info("batch finished",
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("cancelled", summary.Cancelled),
		logging.Duration("elapsed", time.Since(started)),
	)
	return outcomes
}

// admit takes a slot, or reports false once the batch is cancelled.
func (s *Scheduler) admit(ctx context.Context, sem *semaphore.Weighted) bool {
	if err := sem.Acquire(ctx, 1); err != nil {
		return false
	}
	if ctx.Err() != nil {
		sem.Release(1)
		return false
	}
	return true
}

func (s *Scheduler) runJob(ctx context.Context, logger *slog.Logger, index int, spec job.Spec) (out job.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("job runner panicked",
				logging.Int("index", index),
				logging.Any("panic", rec),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "runner_panic"),
			)
			out = job.Outcome{
				Index:      index,
				Source:     spec.Label,
				SourceFile: spec.SourceFile,
				State:      job.StateFailed,
				Err:        services.Wrap(services.ErrPermanent, "scheduler", "run", fmt.Sprintf("runner panic: %v", rec), nil),
				FinishedAt: time.Now(),
			}
		}
	}()
	return s.runner.Run(ctx, index, spec)
}

// Summary counts outcomes by terminal state.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled int
}

// Summarize tallies outcomes.
func Summarize(outcomes []job.Outcome) Summary {
	summary := Summary{Total: len(outcomes)}
	for _, out := range outcomes {
		switch out.State {
		case job.StateSucceeded:
			summary.Succeeded++
		case job.StateCancelled:
			summary.Cancelled++
		default:
			summary.Failed++
		}
	}
	return summary
}

// OK reports whether every job succeeded.
func (s Summary) OK() bool {
	return s.Succeeded == s.Total
}
