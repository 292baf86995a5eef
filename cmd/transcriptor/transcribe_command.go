package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"transcriptor/internal/config"
	"transcriptor/internal/history"
	"transcriptor/internal/job"
	"transcriptor/internal/language"
	"transcriptor/internal/logging"
	"transcriptor/internal/preflight"
	"transcriptor/internal/render"
	"transcriptor/internal/scheduler"
	"transcriptor/internal/transcript"
)

// errBatchIncomplete is returned after the summary table already explained
// which jobs did not succeed.
var errBatchIncomplete = errors.New("one or more transcriptions did not succeed")

type transcribeFlags struct {
	output             string
	format             string
	language           string
	saveAudio          bool
	speakerLabels      bool
	maxSpeakers        int
	timestamps         bool
	detailedTimestamps bool
	maxSegmentSeconds  float64
	concurrency        int
	failFast           bool
	retainUpload       bool
	skipPreflight      bool
}

// transcribeRequest is the merged view of flags and configuration.
type transcribeRequest struct {
	inputs    []string
	output    string
	format    render.Format
	render    render.Options
	options   job.Options
	saveAudio bool
	policy    job.Policy
	scheduler scheduler.Options
	preflight bool
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var flags transcribeFlags

	cmd := &cobra.Command{
		Use:   "transcribe URL_OR_FILE...",
		Short: "Transcribe audio from URLs or local files",
		Long: "Transcribe audio from YouTube, Twitter/X, direct media URLs, or local audio and video files.\n" +
			"A single source prints to stdout or --output FILE; several sources print under\n" +
			"'==> source <==' headers or write one file per source into --output DIR.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			req, err := buildTranscribeRequest(cmd, cfg, flags, args)
			if err != nil {
				return err
			}
			return runTranscribe(cmd, ctx, cfg, logger, req)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (one source) or directory (several sources)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Output format: text, json, srt, vtt, csv")
	cmd.Flags().StringVarP(&flags.language, "language", "l", "", "Language hint such as en, es-ES, or japanese (auto-detect when empty)")
	cmd.Flags().BoolVar(&flags.saveAudio, "save-audio", false, "Keep a copy of the extracted audio in paths.audio_dir")
	cmd.Flags().BoolVar(&flags.speakerLabels, "speaker-labels", false, "Identify speakers")
	cmd.Flags().IntVar(&flags.maxSpeakers, "max-speakers", 0, "Maximum number of speakers to identify (2-10)")
	cmd.Flags().BoolVar(&flags.timestamps, "timestamps", false, "Prefix text lines with timestamps")
	cmd.Flags().BoolVar(&flags.detailedTimestamps, "detailed-timestamps", false, "Word-level timestamps with milliseconds (implies --timestamps)")
	cmd.Flags().Float64Var(&flags.maxSegmentSeconds, "max-segment-length", 0, "Maximum segment length in seconds (0 disables the cap)")
	cmd.Flags().IntVarP(&flags.concurrency, "jobs", "j", 0, "Maximum concurrent transcription jobs")
	cmd.Flags().BoolVar(&flags.failFast, "fail-fast", false, "Cancel the rest of the batch after the first failure")
	cmd.Flags().BoolVar(&flags.retainUpload, "retain-upload", false, "Keep uploaded audio in the bucket after the job ends")
	cmd.Flags().BoolVar(&flags.skipPreflight, "skip-checks", false, "Skip credential and bucket checks before uploading")
	return cmd
}

func buildTranscribeRequest(cmd *cobra.Command, cfg *config.Config, flags transcribeFlags, args []string) (transcribeRequest, error) {
	changed := cmd.Flags().Changed
	req := transcribeRequest{
		inputs:    args,
		output:    strings.TrimSpace(flags.output),
		saveAudio: flags.saveAudio,
		policy:    policyFromConfig(cfg),
		scheduler: scheduler.Options{
			MaxConcurrent: cfg.Jobs.MaxConcurrent,
			FailFast:      cfg.Jobs.FailFast,
		},
		preflight: !flags.skipPreflight,
	}

	formatName := cfg.Output.DefaultFormat
	if changed("format") {
		formatName = flags.format
	}
	format, err := render.ParseFormat(formatName)
	if err != nil {
		return req, err
	}
	req.format = format

	hint := cfg.Transcription.DefaultLanguage
	if changed("language") {
		hint = flags.language
	}
	if _, err := language.Normalize(hint); err != nil {
		return req, fmt.Errorf("invalid --language: %w", err)
	}

	opts := job.Options{
		Language:           hint,
		SpeakerLabels:      cfg.Transcription.SpeakerLabels || flags.speakerLabels,
		MaxSpeakers:        cfg.Transcription.MaxSpeakers,
		DetailedTimestamps: cfg.Transcription.DetailedTimestamps || flags.detailedTimestamps,
		RetainUpload:       cfg.Jobs.RetainUploads || flags.retainUpload,
	}
	if changed("max-speakers") {
		clamped := min(max(flags.maxSpeakers, transcript.MinSpeakers), transcript.MaxSpeakers)
		if clamped != flags.maxSpeakers {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: --max-speakers %d is outside %d-%d; using %d\n",
				flags.maxSpeakers, transcript.MinSpeakers, transcript.MaxSpeakers, clamped)
		}
		opts.MaxSpeakers = clamped
		opts.SpeakerLabels = true
	}
	req.options = opts

	if changed("max-segment-length") {
		if flags.maxSegmentSeconds < 0 {
			return req, fmt.Errorf("--max-segment-length must be >= 0")
		}
		req.policy.MaxSegmentMs = uint64(flags.maxSegmentSeconds * 1000)
	}
	if changed("jobs") {
		if flags.concurrency < 1 {
			return req, fmt.Errorf("--jobs must be >= 1")
		}
		req.scheduler.MaxConcurrent = flags.concurrency
	}
	if flags.failFast {
		req.scheduler.FailFast = true
	}

	req.render = render.Options{Timestamps: cfg.Output.Timestamps || flags.timestamps}
	if opts.DetailedTimestamps {
		req.render.Timestamps = true
		req.render.Precision = render.PrecisionWord
	}

	if len(args) > 1 && req.output != "" {
		if info, err := os.Stat(req.output); err == nil && !info.IsDir() {
			return req, fmt.Errorf("--output %s is a file; several sources need a directory", req.output)
		}
	}
	return req, nil
}

func policyFromConfig(cfg *config.Config) job.Policy {
	policy := job.DefaultPolicy()
	policy.MaxAttempts = cfg.Jobs.MaxAttempts
	retryInitial, retryMax := cfg.RetryBackoff()
	policy.RetryBackoff = job.Backoff{Initial: retryInitial, Max: retryMax, Multiplier: 2}
	pollInitial, pollMax := cfg.PollInterval()
	policy.PollBackoff = job.Backoff{Initial: pollInitial, Max: pollMax, Multiplier: cfg.Jobs.PollBackoffFactor}
	policy.Timeout = cfg.JobTimeout()
	policy.CleanupTimeout = cfg.CleanupTimeout()
	policy.SilenceThresholdMs = uint64(max(cfg.Transcription.SilenceThresholdMs, 0))
	policy.MaxSegmentMs = uint64(max(cfg.Transcription.MaxSegmentMs, 0))
	return policy
}

func runTranscribe(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, logger *slog.Logger, req transcribeRequest) error {
	runCtx := commandCtx(cmd)
	stderr := cmd.ErrOrStderr()

	if err := cfg.RequireBucket(); err != nil {
		return err
	}
	warnMissingDependencies(stderr, cfg)

	be, err := ctx.backends(runCtx, cfg, logger)
	if err != nil {
		return err
	}
	if req.preflight && be.Remote != nil {
		results := []preflight.Result{
			preflight.CheckCredentials(runCtx, be.Remote),
		}
		if results[0].Passed {
			results = append(results, preflight.CheckBucketAccess(runCtx, be.Remote, cfg.AWS.S3Bucket))
		}
		if failed := preflight.Failed(results); len(failed) > 0 {
			return fmt.Errorf("%s check failed: %s", failed[0].Name, failed[0].Detail)
		}
	}

	controllerOpts := []job.Option{
		job.WithPolicy(req.policy),
		job.WithLogger(logger),
	}
	var recorder job.Observer
	if cfg.History.Enabled {
		store, err := history.Open(runCtx, cfg)
		if err != nil {
			logging.WarnWithContext(logger, "history ledger unavailable; continuing without it", "history_open",
				logging.String("path", cfg.HistoryPath()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete the history database or set history.enabled = false"),
			)
		} else {
			defer store.Close()
			recorder = store.Observer(logger)
		}
	}

	work := newBatch(req.inputs)
	defer work.cleanup()
	work.resolve(runCtx, newResolver(ctx, cfg, logger), req.options)
	if recorder != nil {
		controllerOpts = append(controllerOpts, job.WithObserver(work.observe(recorder)))
	}

	controller := job.NewController(be.Storage, be.Recognizer, controllerOpts...)
	sched := scheduler.New(controller, req.scheduler, logger)
	work.run(runCtx, sched)

	if err := writeBatchOutputs(cmd.OutOrStdout(), work, req); err != nil {
		return err
	}
	if req.saveAudio {
		saveBatchAudio(cmd.OutOrStdout(), stderr, cfg, work)
	}

	summary := scheduler.Summarize(work.outcomes())
	if len(work.items) > 1 {
		fmt.Fprintln(stderr, renderBatchSummary(work))
		fmt.Fprintf(stderr, "%d succeeded, %d failed, %d cancelled\n", summary.Succeeded, summary.Failed, summary.Cancelled)
		if !summary.OK() {
			return errBatchIncomplete
		}
		return nil
	}
	if out := work.items[0].outcome; !out.Succeeded() {
		return out.Err
	}
	return nil
}

func warnMissingDependencies(w io.Writer, cfg *config.Config) {
	var missing []string
	for _, status := range preflight.CheckSystemDeps(cfg) {
		if !status.Available {
			missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Description))
		}
	}
	if len(missing) == 0 {
		return
	}
	fmt.Fprintln(w, "Dependency check warnings:")
	for _, dep := range missing {
		fmt.Fprintf(w, "  - %s\n", dep)
	}
	fmt.Fprintln(w, "  (continuing; sources that need them will fail)")
}
