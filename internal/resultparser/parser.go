// Package resultparser converts the raw document returned by the speech
// recognition service into a transcript.Transcript.
//
// Tokens are flattened into a time-ordered stream, punctuation is attached to
// the preceding word, and the stream is grouped into segments on speaker
// changes, silences, and segment length. Speaker tags are renumbered spk0,
// spk1, ... in order of first appearance for each call.
package resultparser

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"transcriptor/internal/language"
	"transcriptor/internal/transcript"
)

// Defaults applied when Options leaves a threshold at zero.
const (
	DefaultSilenceThresholdMs = 1000
	DefaultMaxSegmentMs       = 10000
)

// ErrMalformedResult marks documents that cannot be turned into a transcript.
var ErrMalformedResult = errors.New("malformed transcription result")

// ErrUnsupportedLanguage marks documents whose language is not supported.
var ErrUnsupportedLanguage = language.ErrUnsupported

// UnsupportedLanguageError names the rejected language code.
type UnsupportedLanguageError = language.UnsupportedError

// MalformedResultError describes why a document was rejected.
type MalformedResultError struct {
	Reason string
	Err    error
}

func (e *MalformedResultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrMalformedResult, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrMalformedResult, e.Reason)
}

// Is reports whether target is ErrMalformedResult.
func (e *MalformedResultError) Is(target error) bool {
	return target == ErrMalformedResult
}

func (e *MalformedResultError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return &MalformedResultError{Reason: fmt.Sprintf(format, args...)}
}

// Options mirror the settings the job was submitted with.
//
// SilenceThresholdMs zero means DefaultSilenceThresholdMs. MaxSegmentMs zero
// disables the length cap and the sentence-break rule.
type Options struct {
	SpeakerLabels      bool
	Detailed           bool
	Language           string
	SilenceThresholdMs uint64
	MaxSegmentMs       uint64
}

type token struct {
	startMs     uint64
	endMs       uint64
	text        string
	speaker     string
	confidence  float64
	hasConf     bool
	sentenceEnd bool
}

// Parse converts raw into a validated transcript.
func Parse(raw []byte, opts Options) (*transcript.Transcript, error) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, &MalformedResultError{Reason: "decode document", Err: err}
	}
	if doc.Results == nil {
		return nil, malformed("document has no results")
	}
	results := doc.Results

	code := strings.TrimSpace(results.LanguageCode)
	if code == "" {
		code = strings.TrimSpace(opts.Language)
	}
	if code == "" {
		return nil, malformed("document declares no language and none was requested")
	}
	locale, err := language.Canonical(code)
	if err != nil {
		return nil, err
	}

	tokens, err := flatten(results, opts.SpeakerLabels)
	if err != nil {
		return nil, err
	}
	segments, err := group(tokens, opts)
	if err != nil {
		return nil, err
	}

	var duration uint64
	if n := len(tokens); n > 0 {
		duration = tokens[n-1].endMs
	}
	t, err := transcript.New(locale, duration, segments)
	if err != nil {
		return nil, &MalformedResultError{Reason: "build transcript", Err: err}
	}
	return t, nil
}

// flatten produces the time-ordered token stream with punctuation attached
// and speaker tags resolved.
func flatten(results *docResults, wantSpeakers bool) ([]token, error) {
	var bySpeakerStart map[uint64]string
	if wantSpeakers {
		bySpeakerStart = speakerIndex(results.SpeakerLabels)
		if results.SpeakerLabels == nil && !anyItemSpeaker(results.Items) {
			return nil, malformed("speaker labels requested but document has no speaker channel")
		}
	}

	tokens := make([]token, 0, len(results.Items))
	for i, item := range results.Items {
		switch item.Type {
		case "pronunciation":
			if item.StartTime == nil || item.EndTime == nil {
				return nil, malformed("item %d has no timing", i)
			}
			if len(item.Alternatives) == 0 {
				return nil, malformed("item %d has no alternatives", i)
			}
			start, end := float64(*item.StartTime), float64(*item.EndTime)
			if start < 0 || end < start {
				return nil, malformed("item %d has invalid range %.3f-%.3f", i, start, end)
			}
			alt := item.Alternatives[0]
			tok := token{
				startMs: secondsToMs(start),
				endMs:   secondsToMs(end),
				text:    strings.TrimSpace(alt.Content),
			}
			if alt.Confidence != nil {
				tok.confidence = clampUnit(float64(*alt.Confidence))
				tok.hasConf = true
			}
			if wantSpeakers {
				tok.speaker = item.SpeakerLabel
				if tok.speaker == "" {
					tok.speaker = bySpeakerStart[tok.startMs]
				}
			}
			tokens = append(tokens, tok)
		case "punctuation":
			if len(tokens) == 0 || len(item.Alternatives) == 0 {
				continue
			}
			content := strings.TrimSpace(item.Alternatives[0].Content)
			prev := &tokens[len(tokens)-1]
			prev.text += content
			if strings.HasSuffix(content, ".") || strings.HasSuffix(content, "!") || strings.HasSuffix(content, "?") {
				prev.sentenceEnd = true
			}
		}
	}

	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].startMs < tokens[j].startMs
	})
	normalizeTiming(tokens)

	if wantSpeakers {
		if err := resolveSpeakers(tokens); err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

// normalizeTiming gives every token a positive length and clamps overlaps so
// consecutive tokens never share time.
func normalizeTiming(tokens []token) {
	for i := range tokens {
		if i > 0 && tokens[i].startMs < tokens[i-1].endMs {
			tokens[i].startMs = tokens[i-1].endMs
		}
		if tokens[i].endMs <= tokens[i].startMs {
			tokens[i].endMs = tokens[i].startMs + 1
		}
	}
}

// resolveSpeakers fills missing tags from the previous token (or the first
// tagged token for a leading run) and renumbers tags by first appearance.
func resolveSpeakers(tokens []token) error {
	if len(tokens) == 0 {
		return nil
	}
	first := ""
	for _, tok := range tokens {
		if tok.speaker != "" {
			first = tok.speaker
			break
		}
	}
	if first == "" {
		return malformed("speaker labels requested but no token carries a speaker")
	}
	current := first
	renumber := make(map[string]string)
	for i := range tokens {
		if tokens[i].speaker == "" {
			tokens[i].speaker = current
		}
		current = tokens[i].speaker
		id, ok := renumber[current]
		if !ok {
			id = fmt.Sprintf("spk%d", len(renumber))
			renumber[current] = id
		}
		tokens[i].speaker = id
	}
	if len(renumber) > transcript.MaxSpeakers {
		return malformed("document references %d speakers, more than %d", len(renumber), transcript.MaxSpeakers)
	}
	return nil
}

func group(tokens []token, opts Options) ([]transcript.Segment, error) {
	threshold := opts.SilenceThresholdMs
	if threshold == 0 {
		threshold = DefaultSilenceThresholdMs
	}
	maxLen := opts.MaxSegmentMs

	var (
		segments []transcript.Segment
		current  []token
	)
	flush := func() error {
		if len(current) == 0 {
			return malformed("empty segment")
		}
		segments = append(segments, buildSegment(current, opts.Detailed))
		current = nil
		return nil
	}

	for _, tok := range tokens {
		if len(current) > 0 && startsSegment(current, tok, threshold, maxLen) {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		current = append(current, tok)
	}
	if len(current) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return segments, nil
}

func startsSegment(current []token, next token, thresholdMs, maxLenMs uint64) bool {
	first := current[0]
	last := current[len(current)-1]
	if next.speaker != last.speaker {
		return true
	}
	if next.startMs-last.endMs > thresholdMs {
		return true
	}
	if maxLenMs == 0 {
		return false
	}
	if next.endMs-first.startMs > maxLenMs {
		return true
	}
	return last.sentenceEnd && last.endMs-first.startMs > maxLenMs/2
}

func buildSegment(tokens []token, detailed bool) transcript.Segment {
	seg := transcript.Segment{
		StartMs:   tokens[0].startMs,
		EndMs:     tokens[len(tokens)-1].endMs,
		SpeakerID: tokens[0].speaker,
	}
	texts := make([]string, 0, len(tokens))
	var sum float64
	var counted int
	for _, tok := range tokens {
		texts = append(texts, tok.text)
		if tok.hasConf {
			sum += tok.confidence
			counted++
		}
		if detailed {
			seg.Words = append(seg.Words, transcript.Word{
				StartMs:    tok.startMs,
				EndMs:      tok.endMs,
				Text:       tok.text,
				Confidence: tok.confidence,
			})
		}
	}
	seg.Text = strings.Join(texts, " ")
	if counted > 0 {
		seg.Confidence = clampUnit(sum / float64(counted))
	}
	return seg
}

func speakerIndex(labels *docSpeakerLabels) map[uint64]string {
	index := make(map[uint64]string)
	if labels == nil {
		return index
	}
	for _, seg := range labels.Segments {
		for _, item := range seg.Items {
			if item.StartTime == nil {
				continue
			}
			label := item.SpeakerLabel
			if label == "" {
				label = seg.SpeakerLabel
			}
			index[secondsToMs(float64(*item.StartTime))] = label
		}
	}
	return index
}

func anyItemSpeaker(items []docItem) bool {
	for _, item := range items {
		if item.SpeakerLabel != "" {
			return true
		}
	}
	return false
}

func secondsToMs(seconds float64) uint64 {
	return uint64(math.Round(seconds * 1000))
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
