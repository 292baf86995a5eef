package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"transcriptor/internal/config"
	"transcriptor/internal/fileutil"
	"transcriptor/internal/job"
	"transcriptor/internal/render"
	"transcriptor/internal/scheduler"
	"transcriptor/internal/services"
	"transcriptor/internal/source"
)

// batchItem tracks one command-line source from resolution to output.
type batchItem struct {
	input    string
	resolved source.Resolved
	ready    bool
	spec     job.Spec
	outcome  job.Outcome
}

type batch struct {
	items []*batchItem
}

func newBatch(inputs []string) *batch {
	b := &batch{items: make([]*batchItem, 0, len(inputs))}
	for _, input := range inputs {
		b.items = append(b.items, &batchItem{input: input})
	}
	return b
}

func newResolver(ctx *commandContext, cfg *config.Config, logger *slog.Logger) *source.Resolver {
	return source.NewResolver(cfg, logger, ctx.resolverOptions...)
}

// resolve turns every input into local audio. Inputs that fail here never
// reach the scheduler; they are recorded as failed (or cancelled) outcomes.
func (b *batch) resolve(ctx context.Context, resolver *source.Resolver, opts job.Options) {
	for i, item := range b.items {
		if ctx.Err() != nil {
			cause := context.Cause(ctx)
			item.outcome = unscheduledOutcome(i, item.input, job.StateCancelled,
				services.Wrap(services.ErrCancelled, "source", "resolve", "cancelled before start", cause))
			continue
		}
		res, err := resolver.Resolve(ctx, item.input)
		if err != nil {
			state := job.StateFailed
			if ctx.Err() != nil {
				state = job.StateCancelled
				err = services.Wrap(services.ErrCancelled, "source", "resolve", item.input, err)
			}
			item.outcome = unscheduledOutcome(i, item.input, state, err)
			continue
		}
		item.resolved = res
		item.ready = true
		item.spec = job.Spec{SourceFile: res.Path, Label: item.input, Options: opts}
	}
}

func unscheduledOutcome(index int, input string, state job.State, err error) job.Outcome {
	now := time.Now()
	return job.Outcome{
		Index:      index,
		Source:     input,
		State:      state,
		Err:        err,
		StartedAt:  now,
		FinishedAt: now,
	}
}

// scheduled returns the specs of resolved items and, for each, its position
// in the batch.
func (b *batch) scheduled() ([]job.Spec, []int) {
	var (
		specs     []job.Spec
		positions []int
	)
	for i, item := range b.items {
		if item.ready {
			specs = append(specs, item.spec)
			positions = append(positions, i)
		}
	}
	return specs, positions
}

// observe rewrites event indices from scheduler order to batch order before
// handing them to next, so recorded positions match the command line.
func (b *batch) observe(next job.Observer) job.Observer {
	_, positions := b.scheduled()
	return func(ev job.Event) {
		if ev.Index >= 0 && ev.Index < len(positions) {
			ev.Index = positions[ev.Index]
		}
		next(ev)
	}
}

// run schedules every resolved item and stores the outcomes in input order.
func (b *batch) run(ctx context.Context, sched *scheduler.Scheduler) {
	specs, positions := b.scheduled()
	if len(specs) == 0 {
		return
	}
	for i, out := range sched.Run(ctx, specs) {
		out.Index = positions[i]
		b.items[positions[i]].outcome = out
	}
}

func (b *batch) outcomes() []job.Outcome {
	out := make([]job.Outcome, len(b.items))
	for i, item := range b.items {
		out[i] = item.outcome
	}
	return out
}

func (b *batch) cleanup() {
	for _, item := range b.items {
		if item.ready {
			item.resolved.Cleanup()
		}
	}
}

func (item *batchItem) outputName(format render.Format) string {
	return item.resolved.OutputName() + format.Extension()
}

func writeBatchOutputs(stdout io.Writer, b *batch, req transcribeRequest) error {
	if len(b.items) == 1 {
		return writeSingleOutput(stdout, b.items[0], req)
	}
	if req.output == "" {
		first := true
		for _, item := range b.items {
			if !item.outcome.Succeeded() {
				continue
			}
			data, err := render.Render(item.outcome.Transcript, req.format, req.render)
			if err != nil {
				return err
			}
			if !first {
				fmt.Fprintln(stdout)
			}
			first = false
			fmt.Fprintf(stdout, "==> %s <==\n", item.input)
			if _, err := stdout.Write(data); err != nil {
				return err
			}
		}
		return nil
	}

	if err := os.MkdirAll(req.output, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", req.output, err)
	}
	for _, item := range b.items {
		if !item.outcome.Succeeded() {
			continue
		}
		target, err := fileutil.UniquePath(req.output, item.outputName(req.format))
		if err != nil {
			return err
		}
		if err := writeRendered(target, item, req); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Transcription saved to: %s\n", target)
	}
	return nil
}

func writeSingleOutput(stdout io.Writer, item *batchItem, req transcribeRequest) error {
	if !item.outcome.Succeeded() {
		return nil
	}
	if req.output == "" {
		data, err := render.Render(item.outcome.Transcript, req.format, req.render)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	target := req.output
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		target, err = fileutil.UniquePath(target, item.outputName(req.format))
		if err != nil {
			return err
		}
	}
	if err := writeRendered(target, item, req); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Transcription saved to: %s\n", target)
	return nil
}

func writeRendered(target string, item *batchItem, req transcribeRequest) error {
	data, err := render.Render(item.outcome.Transcript, req.format, req.render)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(target, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}

func saveBatchAudio(stdout, stderr io.Writer, cfg *config.Config, b *batch) {
	dir := cfg.Paths.AudioDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(stderr, "Warning: cannot create audio directory %s: %v\n", dir, err)
		return
	}
	for _, item := range b.items {
		if !item.ready || !item.outcome.Succeeded() {
			continue
		}
		name := item.resolved.OutputName() + filepath.Ext(item.resolved.Path)
		target, err := fileutil.UniquePath(dir, name)
		if err == nil {
			err = fileutil.CopyFileVerified(item.resolved.Path, target)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Warning: could not save audio for %s: %v\n", item.input, err)
			continue
		}
		fmt.Fprintf(stdout, "Audio saved to: %s\n", target)
	}
}

const summaryErrorWidth = 60

func renderBatchSummary(b *batch) string {
	columns := []column{
		{title: "#", numeric: true},
		{title: "Source", wide: true},
		{title: "State"},
		{title: "Segments", numeric: true},
		{title: "Attempts", numeric: true},
		{title: "Elapsed", numeric: true},
		{title: "Error", wide: true},
	}
	rows := make([][]string, 0, len(b.items))
	for i, item := range b.items {
		out := item.outcome
		var segments string
		if out.Transcript != nil {
			segments = strconv.Itoa(len(out.Transcript.Segments))
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.input,
			string(out.State),
			segments,
			strconv.Itoa(out.Attempts),
			out.Elapsed().Round(time.Second).String(),
			summarizeError(out.Err),
		})
	}
	return renderTable(columns, rows)
}

func summarizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	return summarizeMessage(string(job.Kind(err)), msg)
}
