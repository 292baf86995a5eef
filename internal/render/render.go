// Package render turns a validated transcript into one of the supported output
// formats. Every renderer is a pure function of its inputs; calling one with a
// transcript that fails validation is a programming error and panics.
package render

import (
	"fmt"
	"strings"

	"transcriptor/internal/transcript"
)

// Format names an output serialization.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatCSV  Format = "csv"
)

// Formats lists every supported format in display order.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatSRT, FormatVTT, FormatCSV}
}

// Extension returns the conventional file extension, including the dot.
func (f Format) Extension() string {
	if f == FormatText {
		return ".txt"
	}
	return "." + string(f)
}

// ParseFormat resolves a user-supplied format name.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatText, "txt":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatSRT:
		return FormatSRT, nil
	case FormatVTT, "webvtt":
		return FormatVTT, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text, json, srt, vtt, or csv)", value)
	}
}

// Precision selects between segment-level and word-level timing.
type Precision string

const (
	PrecisionSegment Precision = "segment"
	PrecisionWord    Precision = "word"
)

// Options tunes rendering.
//
// Precision switches SRT, VTT, and CSV to one cue or row per word for
// segments that carry words. Timestamps prefixes text lines with the segment
// start time; it has no effect on other formats.
type Options struct {
	Precision  Precision
	Timestamps bool
}

// Render dispatches to the renderer for format. The only error is an unknown
// format.
func Render(t *transcript.Transcript, format Format, opts Options) ([]byte, error) {
	switch format {
	case FormatText:
		return Text(t, opts), nil
	case FormatJSON:
		return JSON(t), nil
	case FormatSRT:
		return SRT(t, opts), nil
	case FormatVTT:
		return VTT(t, opts), nil
	case FormatCSV:
		return CSV(t, opts), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

func mustValid(t *transcript.Transcript) {
	if err := t.Validate(); err != nil {
		panic(fmt.Sprintf("render: invalid transcript: %v", err))
	}
}

// speakerPrefix returns "[SpeakerN]: " for labelled segments, N being the
// number in the "spkN" id.
func speakerPrefix(speakerID string) string {
	n, ok := transcript.SpeakerNumber(speakerID)
	if !ok {
		return ""
	}
	return fmt.Sprintf("[Speaker%d]: ", n)
}

// cue is one timed block in SRT, VTT, or CSV output.
type cue struct {
	startMs uint64
	endMs   uint64
	speaker string
	text    string
}

func cues(t *transcript.Transcript, precision Precision) []cue {
	out := make([]cue, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if precision == PrecisionWord && len(seg.Words) > 0 {
			for _, w := range seg.Words {
				out = append(out, cue{startMs: w.StartMs, endMs: w.EndMs, speaker: seg.SpeakerID, text: w.Text})
			}
			continue
		}
		out = append(out, cue{startMs: seg.StartMs, endMs: seg.EndMs, speaker: seg.SpeakerID, text: seg.Text})
	}
	return out
}

// clockParts splits milliseconds into hours, minutes, seconds, and millis.
func clockParts(ms uint64) (h, m, s, rem uint64) {
	h = ms / 3_600_000
	ms %= 3_600_000
	m = ms / 60_000
	ms %= 60_000
	s = ms / 1000
	rem = ms % 1000
	return h, m, s, rem
}

func formatClock(ms uint64, sep byte) string {
	h, m, s, rem := clockParts(ms)
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, rem)
}
