package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"transcriptor/internal/preflight"
)

const ansiReset = "\x1b[0m"

// checkMark is how one preflight outcome is shown.
type checkMark struct {
	label string
	color string
}

var (
	markPassed  = checkMark{label: "OK", color: "\x1b[32m"}
	markMissing = checkMark{label: "WARN", color: "\x1b[33m"}
	markFailed  = checkMark{label: "FAIL", color: "\x1b[31m"}
)

// markFor grades r. Optional checks never fail the report.
func markFor(r preflight.Result) checkMark {
	switch {
	case r.Passed:
		return markPassed
	case r.Optional:
		return markMissing
	default:
		return markFailed
	}
}

// writeCheckReport prints title, one aligned line per result and a tally.
func writeCheckReport(w io.Writer, title string, results []preflight.Result) {
	colorize := isTerminal(w)
	width := 0
	for _, r := range results {
		width = max(width, len(r.Name)+1)
	}

	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
	var passed, missing, failed int
	for _, r := range results {
		switch markFor(r) {
		case markPassed:
			passed++
		case markMissing:
			missing++
		default:
			failed++
		}
		fmt.Fprintln(w, checkLine(r, width, colorize))
	}
	fmt.Fprintf(w, "%d passed, %d warnings, %d failed\n", passed, missing, failed)
}

func checkLine(r preflight.Result, width int, colorize bool) string {
	mark := markFor(r)
	detail := strings.TrimSpace(r.Detail)
	if detail == "" && !r.Passed {
		detail = "not available"
	}
	line := fmt.Sprintf("  %-*s [%s] %s", width, r.Name+":", mark.label, detail)
	line = strings.TrimRight(line, " ")
	if colorize {
		return mark.color + line + ansiReset
	}
	return line
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
