package render

import (
	"encoding/json"

	"transcriptor/internal/transcript"
)

type jsonDocument struct {
	LanguageCode string        `json:"language_code"`
	DurationMs   uint64        `json:"duration_ms"`
	Speakers     []string      `json:"speakers"`
	Segments     []jsonSegment `json:"segments"`
}

type jsonSegment struct {
	StartMs    uint64     `json:"start_ms"`
	EndMs      uint64     `json:"end_ms"`
	Speaker    *string    `json:"speaker"`
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Words      []jsonWord `json:"words,omitempty"`
}

type jsonWord struct {
	StartMs    uint64  `json:"start_ms"`
	EndMs      uint64  `json:"end_ms"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// JSON renders the full transcript structure with two-space indentation and a
// trailing newline. Key order follows the struct field order.
func JSON(t *transcript.Transcript) []byte {
	mustValid(t)
	doc := jsonDocument{
		LanguageCode: t.LanguageCode,
		DurationMs:   t.DurationMs,
		Speakers:     append([]string{}, t.Speakers...),
		Segments:     make([]jsonSegment, 0, len(t.Segments)),
	}
	for _, seg := range t.Segments {
		out := jsonSegment{
			StartMs:    seg.StartMs,
			EndMs:      seg.EndMs,
			Text:       seg.Text,
			Confidence: seg.Confidence,
		}
		if seg.SpeakerID != "" {
			speaker := seg.SpeakerID
			out.Speaker = &speaker
		}
		for _, w := range seg.Words {
			out.Words = append(out.Words, jsonWord(w))
		}
		doc.Segments = append(doc.Segments, out)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		panic("render: encode json: " + err.Error())
	}
	return append(data, '\n')
}
