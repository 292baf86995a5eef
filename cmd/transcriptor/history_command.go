package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"transcriptor/internal/history"
	"transcriptor/internal/job"
	"transcriptor/internal/language"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local job history",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func withHistory(cmd *cobra.Command, ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(commandCtx(cmd), cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit     int
		stateFlag string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent transcription jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var state job.State
			if stateFlag != "" {
				parsed, ok := job.ParseState(stateFlag)
				if !ok {
					return fmt.Errorf("invalid --state %q (expected one of %s)", stateFlag, stateNames())
				}
				state = parsed
			}
			return withHistory(cmd, ctx, func(store *history.Store) error {
				entries, err := store.List(commandCtx(cmd), state, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					if state != "" {
						fmt.Fprintf(out, "No %s jobs recorded\n", state)
						return nil
					}
					fmt.Fprintln(out, "No jobs recorded")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(entries))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Number of jobs to show")
	cmd.Flags().StringVar(&stateFlag, "state", "", "Only show jobs in this state")
	return cmd
}

func stateNames() string {
	states := job.AllStates()
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one recorded job; a unique id prefix is enough",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, ctx, func(store *history.Store) error {
				entry, err := store.Get(commandCtx(cmd), args[0])
				if err != nil {
					return err
				}
				writeHistoryEntry(cmd.OutOrStdout(), entry)
				return nil
			})
		},
	}
}

func writeHistoryEntry(w io.Writer, e history.Entry) {
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-10s %s\n", label+":", value)
		}
	}
	line("Job", e.JobID)
	line("Batch", e.BatchID)
	line("Position", strconv.Itoa(e.Index+1))
	line("Source", e.Source)
	line("State", string(e.State))
	line("Remote", e.RemoteJobID)
	line("Language", languageLabel(e.Language))
	line("Segments", strconv.Itoa(e.Segments))
	line("Attempts", strconv.Itoa(e.Attempts))
	if e.ErrorKind != "" {
		line("Error", strings.TrimSpace(string(e.ErrorKind)+": "+e.ErrorMessage))
	}
	line("Created", e.CreatedAt.Local().Format(time.DateTime))
	line("Updated", e.UpdatedAt.Local().Format(time.DateTime))
}

// languageLabel renders a detected locale for people. Jobs that never got a
// result have no language and show nothing.
func languageLabel(code string) string {
	if code == "" {
		return ""
	}
	return language.DisplayName(code)
}

func renderHistoryTable(entries []history.Entry) string {
	columns := []column{
		{title: "Updated"},
		{title: "Job"},
		{title: "Source", wide: true},
		{title: "State"},
		{title: "Language"},
		{title: "Segments", numeric: true},
		{title: "Attempts", numeric: true},
		{title: "Error", wide: true},
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		failure := string(e.ErrorKind)
		if failure != "" && e.ErrorMessage != "" {
			failure = summarizeMessage(failure, e.ErrorMessage)
		}
		rows = append(rows, []string{
			e.UpdatedAt.Local().Format(time.DateTime),
			shortID(e.JobID),
			e.Source,
			string(e.State),
			languageLabel(e.Language),
			strconv.Itoa(e.Segments),
			strconv.Itoa(e.Attempts),
			failure,
		})
	}
	return renderTable(columns, rows)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func summarizeMessage(kind, msg string) string {
	if len(msg) > summaryErrorWidth {
		msg = msg[:summaryErrorWidth-3] + "..."
	}
	return kind + ": " + msg
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every recorded job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, ctx, func(store *history.Store) error {
				removed, err := store.Clear(commandCtx(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s) from %s\n", removed, store.Path())
				return nil
			})
		},
	}
}
