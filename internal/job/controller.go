package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"transcriptor/internal/language"
	"transcriptor/internal/logging"
	"transcriptor/internal/resultparser"
	"transcriptor/internal/services"
	"transcriptor/internal/transcript"
)

// Controller runs jobs against injected collaborators.
type Controller struct {
	storage    Storage
	recognizer Recognizer
	clock      Clock
	policy     Policy
	logger     *slog.Logger
	observer   Observer
	newID      func() string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithPolicy replaces DefaultPolicy.
func WithPolicy(policy Policy) Option {
	return func(c *Controller) {
		c.policy = policy.normalized()
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithObserver registers a transition observer.
func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		c.observer = observer
	}
}

// WithIDGenerator replaces the UUID job id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewController builds a Controller. Storage and recognizer are required.
func NewController(storage Storage, recognizer Recognizer, opts ...Option) *Controller {
	c := &Controller{
		storage:    storage,
		recognizer: recognizer,
		clock:      SystemClock(),
		policy:     DefaultPolicy(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "job")
	return c
}

// Policy returns the effective policy.
func (c *Controller) Policy() Policy {
	return c.policy
}

// Run drives spec to a terminal state and returns its outcome. It never
// panics and never returns before cleanup of any uploaded audio has finished.
func (c *Controller) Run(ctx context.Context, index int, spec Spec) Outcome {
	r := c.newRun(ctx, index, spec)
	err := r.execute()
	return r.finish(err)
}

// Cancelled records a job that was cancelled before it was admitted. No
// collaborator is called.
func (c *Controller) Cancelled(ctx context.Context, index int, spec Spec) Outcome {
	r := c.newRun(ctx, index, spec)
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	return r.finish(services.Wrap(services.ErrCancelled, "job", "admit", "cancelled before start", cause))
}

// run is the mutable record of one job. It is confined to the goroutine
// that called Run.
type run struct {
	c        *Controller
	ctx      context.Context
	logger   *slog.Logger
	index    int
	spec     Spec
	id       string
	state    State
	started  time.Time
	deadline time.Time

	handle      *Handle
	remoteJobID string
	attempts    int
	lastErr     error
	result      *transcript.Transcript
}

func (c *Controller) newRun(ctx context.Context, index int, spec Spec) *run {
	id := c.newID()
	ctx = services.WithState(services.WithJobID(ctx, id), string(StatePending))
	now := c.clock.Now()
	return &run{
		c:        c,
		ctx:      ctx,
		logger:   c.runLogger(ctx, spec),
		index:    index,
		spec:     spec,
		id:       id,
		state:    StatePending,
		started:  now,
		deadline: now.Add(c.policy.Timeout),
	}
}

// runLogger tags the controller logger with the job id and state carried by
// ctx and with the job's source.
func (c *Controller) runLogger(ctx context.Context, spec Spec) *slog.Logger {
	return logging.WithContext(ctx, c.logger).With(logging.String("source", spec.label()))
}

func (r *run) execute() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("job panicked",
				logging.String(logging.FieldEventType, "job_panic"),
				logging.Any("panic", rec),
				logging.String("stack", string(debug.Stack())),
			)
			err = services.Wrap(services.ErrPermanent, "job", string(r.state), fmt.Sprintf("internal fault: %v", rec), nil)
		}
	}()

	hint, err := language.Normalize(r.spec.Options.Language)
	if err != nil {
		return services.Wrap(services.ErrValidation, "job", "prepare", "language hint", err)
	}
	if strings.TrimSpace(r.spec.SourceFile) == "" {
		return services.Wrap(services.ErrValidation, "job", "prepare", "source file is required", nil)
	}
	if err := r.alive(); err != nil {
		return err
	}

	r.transition(StateUploading, nil)
	err = r.call("store", services.ErrStorage, func(ctx context.Context) error {
		handle, err := r.c.storage.Store(ctx, r.spec.SourceFile)
		if err != nil {
			return err
		}
		r.handle = &handle
		return nil
	})
	if err != nil {
		return err
	}

	minSpeakers, maxSpeakers := r.spec.Options.speakerRange()
	submit := SubmitOptions{
		LanguageHint:  hint,
		SpeakerLabels: r.spec.Options.SpeakerLabels,
		MinSpeakers:   minSpeakers,
		MaxSpeakers:   maxSpeakers,
	}
	err = r.call("submit", services.ErrSubmit, func(ctx context.Context) error {
		id, err := r.c.recognizer.Submit(ctx, *r.handle, submit)
		if err != nil {
			return err
		}
		r.remoteJobID = id
		return nil
	})
	if err != nil {
		return err
	}
	r.transition(StateSubmitted, nil)

	location, err := r.poll()
	if err != nil {
		return err
	}

	r.transition(StateFetching, nil)
	var raw []byte
	err = r.call("fetch", services.ErrFetch, func(ctx context.Context) error {
		body, err := r.c.recognizer.Fetch(ctx, location)
		if err != nil {
			return err
		}
		raw = body
		return nil
	})
	if err != nil {
		return err
	}
	// A fetch that returns after the budget is spent still fails the job.
	if err := r.alive(); err != nil {
		return err
	}

	r.transition(StateParsing, nil)
	parsed, err := resultparser.Parse(raw, resultparser.Options{
		SpeakerLabels:      r.spec.Options.SpeakerLabels,
		Detailed:           r.spec.Options.DetailedTimestamps,
		Language:           hint,
		SilenceThresholdMs: r.c.policy.SilenceThresholdMs,
		MaxSegmentMs:       r.c.policy.MaxSegmentMs,
	})
	if err != nil {
		return services.Wrap(services.ErrPermanent, "job", "parse", "", err)
	}
	if err := r.alive(); err != nil {
		return err
	}
	r.result = parsed
	return nil
}

func (r *run) poll() (string, error) {
	r.transition(StatePolling, nil)
	for n := 1; ; n++ {
		var status PollResult
		err := r.call("poll", services.ErrPoll, func(ctx context.Context) error {
			res, err := r.c.recognizer.Poll(ctx, r.remoteJobID)
			if err != nil {
				return err
			}
			status = res
			return nil
		})
		if err != nil {
			return "", err
		}
		switch status.Status {
		case PollCompleted:
			if strings.TrimSpace(status.ResultLocation) == "" {
				return "", services.Wrap(services.ErrPoll, "job", "poll", "remote job completed without a result location", services.ErrPermanent)
			}
			return status.ResultLocation, nil
		case PollFailed:
			reason := strings.TrimSpace(status.Reason)
			if reason == "" {
				reason = "no reason given"
			}
			return "", services.Wrap(services.ErrRemoteFailure, "job", "poll", reason, nil)
		}
		if err := r.wait(r.c.policy.PollBackoff.Delay(n)); err != nil {
			return "", err
		}
		r.transition(StatePolling, nil)
	}
}

// call invokes fn, retrying transient failures with backoff until the
// attempt cap, the job budget, or cancellation stops it.
func (r *run) call(op string, marker error, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		if err := r.alive(); err != nil {
			return err
		}
		r.attempts++
		err := r.invoke(fn)
		if err == nil {
			return nil
		}
		err = classify(op, marker, err)
		r.lastErr = err
		if aliveErr := r.alive(); aliveErr != nil {
			return aliveErr
		}
		if !services.Retryable(err) {
			return err
		}
		if attempt >= r.c.policy.MaxAttempts {
			return fmt.Errorf("%s: giving up after %d attempts: %w", op, attempt, err)
		}
		delay := r.c.policy.RetryBackoff.Delay(attempt)
		r.logger.Warn("collaborator call failed; retrying",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_retry"),
			logging.String(logging.FieldErrorHint, "transient failure; will retry automatically"),
		)
		if err := r.wait(delay); err != nil {
			return err
		}
	}
}

func (r *run) invoke(fn func(context.Context) error) (err error) {
	callCtx, cancel := context.WithTimeout(r.ctx, r.deadline.Sub(r.c.clock.Now()))
	defer cancel()
	return fn(callCtx)
}

// classify tags a collaborator error with its operation. Context errors
// returned while the job itself is still alive came from the collaborator's
// own timeout and are treated as transient.
func classify(op string, marker error, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		err = services.Wrap(services.ErrTransient, "", "", "call timed out", err)
	}
	return services.Wrap(marker, "job", op, "", err)
}

// alive reports cancellation or an exhausted budget as a terminal error.
func (r *run) alive() error {
	if r.ctx.Err() != nil {
		return services.Wrap(services.ErrCancelled, "job", string(r.state), "cancellation requested", context.Cause(r.ctx))
	}
	if !r.c.clock.Now().Before(r.deadline) {
		return services.Wrap(services.ErrTimeout, "job", string(r.state),
			fmt.Sprintf("exceeded %s budget", r.c.policy.Timeout), r.lastErr)
	}
	return nil
}

// wait suspends for d, never past the deadline.
func (r *run) wait(d time.Duration) error {
	if err := r.alive(); err != nil {
		return err
	}
	if remaining := r.deadline.Sub(r.c.clock.Now()); d > remaining {
		d = remaining
	}
	select {
	case <-r.ctx.Done():
	case <-r.c.clock.After(d):
	}
	return r.alive()
}

func (r *run) finish(err error) Outcome {
	state := StateSucceeded
	if err != nil {
		state = StateFailed
		if errors.Is(err, services.ErrCancelled) {
			state = StateCancelled
		}
		r.result = nil
	}
	r.cleanup()
	r.transition(state, err)

	return Outcome{
		Index:       r.index,
		JobID:       r.id,
		Source:      r.spec.label(),
		SourceFile:  r.spec.SourceFile,
		State:       state,
		Transcript:  r.result,
		Err:         err,
		RemoteJobID: r.remoteJobID,
		Attempts:    r.attempts,
		StartedAt:   r.started,
		FinishedAt:  r.c.clock.Now(),
	}
}

// cleanup deletes the uploaded audio exactly once. It runs on a context
// detached from cancellation so a cancelled job still removes its upload.
func (r *run) cleanup() {
	if r.handle == nil {
		return
	}
	if r.spec.Options.RetainUpload {
		r.logger.Info("retaining uploaded audio", logging.String("uri", r.handle.URI))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), r.c.policy.CleanupTimeout)
	defer cancel()
	if err := r.deleteUpload(ctx); err != nil {
		logging.WarnWithContext(r.logger, "failed to delete uploaded audio", "upload_cleanup",
			logging.String("uri", r.handle.URI),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the object manually or check storage permissions"),
		)
		return
	}
	r.logger.Debug("deleted uploaded audio", logging.String("uri", r.handle.URI))
}

func (r *run) deleteUpload(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("delete panicked: %v", rec)
		}
	}()
	return r.c.storage.Delete(ctx, *r.handle)
}

func (r *run) transition(to State, err error) {
	from := r.state
	if !CanTransition(from, to) {
		r.logger.Error("illegal state transition",
			logging.String("from", string(from)),
			logging.String("to", string(to)),
			logging.String(logging.FieldEventType, "job_transition_invalid"),
		)
	}
	r.state = to
	r.ctx = services.WithState(r.ctx, string(to))
	r.logger = r.c.runLogger(r.ctx, r.spec)
	logger := r.logger
	switch {
	case to == StateFailed:
		logger.Error("job failed",
			logging.String("kind", string(Kind(err))),
			logging.Int("attempts", r.attempts),
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_failed"),
			logging.String(logging.FieldErrorHint, "inspect the error and retry the source"),
		)
	case to == StateCancelled:
		logger.Info("job cancelled", logging.String(logging.FieldEventType, "job_cancelled"))
	case to == StateSucceeded:
		logger.Info("job succeeded",
			logging.Int("segments", len(r.result.Segments)),
			logging.Int("attempts", r.attempts),
			logging.String(logging.FieldEventType, "job_succeeded"),
		)
	case from == to:
		logger.Debug("job still running", logging.String("remote_job_id", r.remoteJobID))
	default:
		logger.Info("job state changed", logging.String("from", string(from)), logging.String("remote_job_id", r.remoteJobID))
	}

	if r.c.observer != nil {
		ev := Event{
			JobID:       r.id,
			Index:       r.index,
			Source:      r.spec.label(),
			From:        from,
			To:          to,
			Attempts:    r.attempts,
			RemoteJobID: r.remoteJobID,
			Language:    r.spec.Options.Language,
			Err:         err,
			At:          r.c.clock.Now(),
		}
		ev.BatchID, _ = services.BatchIDFromContext(r.ctx)
		if r.result != nil {
			ev.Language = r.result.LanguageCode
			ev.Segments = len(r.result.Segments)
		}
		r.c.observer(ev)
	}
}
