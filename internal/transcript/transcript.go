package transcript

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Supported speaker detection range.
const (
	MinSpeakers = 2
	MaxSpeakers = 10
)

// ErrValidation marks every ValidationError so callers can use errors.Is.
var ErrValidation = errors.New("transcript validation failed")

// ValidationError describes the first invariant a construction input broke.
type ValidationError struct {
	Segment int // -1 when the violation is not tied to a segment
	Word    int // -1 when the violation is not tied to a word
	Reason  string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Segment >= 0 && e.Word >= 0:
		return fmt.Sprintf("%v: segment %d word %d: %s", ErrValidation, e.Segment, e.Word, e.Reason)
	case e.Segment >= 0:
		return fmt.Sprintf("%v: segment %d: %s", ErrValidation, e.Segment, e.Reason)
	default:
		return fmt.Sprintf("%v: %s", ErrValidation, e.Reason)
	}
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Word is a timed token inside a Segment, only kept for detailed timestamps.
type Word struct {
	StartMs    uint64
	EndMs      uint64
	Text       string
	Confidence float64
}

// Segment is a contiguous span of speech attributed to at most one speaker.
// An empty SpeakerID means no speaker label.
type Segment struct {
	StartMs    uint64
	EndMs      uint64
	Text       string
	SpeakerID  string
	Confidence float64
	Words      []Word
}

// DurationMs returns the segment length in milliseconds.
func (s Segment) DurationMs() uint64 {
	return s.EndMs - s.StartMs
}

// Transcript is a validated document. Speakers lists the distinct speaker
// identifiers in order of first appearance.
type Transcript struct {
	LanguageCode string
	Segments     []Segment
	Speakers     []string
	DurationMs   uint64
}

// New validates segments and returns a Transcript. A durationMs of zero is
// replaced by the end of the last segment. When the segments reference only a
// single distinct speaker the labels are dropped, since one speaker is outside
// the supported detection range.
func New(languageCode string, durationMs uint64, segments []Segment) (*Transcript, error) {
	cloned := make([]Segment, len(segments))
	for i, seg := range segments {
		cloned[i] = seg
		if len(seg.Words) > 0 {
			cloned[i].Words = append([]Word(nil), seg.Words...)
		}
	}

	speakers, err := collectSpeakers(cloned)
	if err != nil {
		return nil, err
	}
	if len(speakers) == 1 {
		for i := range cloned {
			cloned[i].SpeakerID = ""
		}
		speakers = nil
	}

	t := &Transcript{
		LanguageCode: strings.TrimSpace(languageCode),
		Segments:     cloned,
		Speakers:     speakers,
		DurationMs:   durationMs,
	}
	if n := len(cloned); n > 0 && t.DurationMs == 0 {
		t.DurationMs = cloned[n-1].EndMs
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks every invariant of the model. Transcripts produced by New
// always pass; the method exists for values assembled by hand.
func (t *Transcript) Validate() error {
	if t == nil {
		return &ValidationError{Segment: -1, Word: -1, Reason: "transcript is nil"}
	}
	for i, seg := range t.Segments {
		if err := validateSegment(i, seg); err != nil {
			return err
		}
		if i > 0 && t.Segments[i-1].EndMs > seg.StartMs {
			return &ValidationError{Segment: i, Word: -1, Reason: fmt.Sprintf(
				"starts at %dms before previous segment ends at %dms", seg.StartMs, t.Segments[i-1].EndMs)}
		}
	}
	if n := len(t.Segments); n > 0 && t.DurationMs < t.Segments[n-1].EndMs {
		return &ValidationError{Segment: -1, Word: -1, Reason: fmt.Sprintf(
			"duration %dms is shorter than last segment end %dms", t.DurationMs, t.Segments[n-1].EndMs)}
	}

	speakers, err := collectSpeakers(t.Segments)
	if err != nil {
		return err
	}
	if len(speakers) != len(t.Speakers) {
		return &ValidationError{Segment: -1, Word: -1, Reason: "speaker set does not match segment speakers"}
	}
	for i := range speakers {
		if speakers[i] != t.Speakers[i] {
			return &ValidationError{Segment: -1, Word: -1, Reason: "speaker set does not match segment speakers"}
		}
	}
	if n := len(speakers); n > 0 && n < MinSpeakers {
		return &ValidationError{Segment: -1, Word: -1, Reason: fmt.Sprintf("%d speaker is below the minimum of %d", n, MinSpeakers)}
	}
	return nil
}

// HasSpeakers reports whether segments carry speaker labels.
func (t *Transcript) HasSpeakers() bool {
	return t != nil && len(t.Speakers) > 0
}

// SpeakerNumber returns N for a speaker id of the form "spkN".
func SpeakerNumber(id string) (int, bool) {
	digits, ok := strings.CutPrefix(id, "spk")
	if !ok || digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func validateSegment(i int, seg Segment) error {
	if seg.EndMs <= seg.StartMs {
		return &ValidationError{Segment: i, Word: -1, Reason: fmt.Sprintf(
			"end %dms must be after start %dms", seg.EndMs, seg.StartMs)}
	}
	if !validConfidence(seg.Confidence) {
		return &ValidationError{Segment: i, Word: -1, Reason: fmt.Sprintf("confidence %v outside [0,1]", seg.Confidence)}
	}
	var prevEnd uint64
	for j, w := range seg.Words {
		if w.EndMs < w.StartMs {
			return &ValidationError{Segment: i, Word: j, Reason: "end precedes start"}
		}
		if w.StartMs < seg.StartMs || w.EndMs > seg.EndMs {
			return &ValidationError{Segment: i, Word: j, Reason: fmt.Sprintf(
				"[%d,%d]ms falls outside segment [%d,%d]ms", w.StartMs, w.EndMs, seg.StartMs, seg.EndMs)}
		}
		if j > 0 && w.StartMs < prevEnd {
			return &ValidationError{Segment: i, Word: j, Reason: "overlaps previous word"}
		}
		if !validConfidence(w.Confidence) {
			return &ValidationError{Segment: i, Word: j, Reason: fmt.Sprintf("confidence %v outside [0,1]", w.Confidence)}
		}
		prevEnd = w.EndMs
	}
	return nil
}

func collectSpeakers(segments []Segment) ([]string, error) {
	var speakers []string
	seen := make(map[string]struct{})
	labelled := 0
	for i, seg := range segments {
		if seg.SpeakerID == "" {
			continue
		}
		if _, ok := SpeakerNumber(seg.SpeakerID); !ok {
			return nil, &ValidationError{Segment: i, Word: -1, Reason: fmt.Sprintf(
				"speaker id %q is not of the form spkN", seg.SpeakerID)}
		}
		labelled++
		if _, ok := seen[seg.SpeakerID]; ok {
			continue
		}
		seen[seg.SpeakerID] = struct{}{}
		speakers = append(speakers, seg.SpeakerID)
	}
	if labelled > 0 && labelled != len(segments) {
		return nil, &ValidationError{Segment: -1, Word: -1, Reason: "speaker labels must be present on every segment or on none"}
	}
	if len(speakers) > MaxSpeakers {
		return nil, &ValidationError{Segment: -1, Word: -1, Reason: fmt.Sprintf(
			"%d speakers exceeds the maximum of %d", len(speakers), MaxSpeakers)}
	}
	return speakers, nil
}

func validConfidence(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
