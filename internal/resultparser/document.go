package resultparser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// document mirrors the result file Amazon Transcribe writes for a completed
// job. Numeric fields arrive as strings; flexNumber accepts either form.
type document struct {
	JobName string      `json:"jobName"`
	Status  string      `json:"status"`
	Results *docResults `json:"results"`
}

type docResults struct {
	LanguageCode  string            `json:"language_code"`
	Transcripts   []docTranscript   `json:"transcripts"`
	Items         []docItem         `json:"items"`
	SpeakerLabels *docSpeakerLabels `json:"speaker_labels,omitempty"`
}

type docTranscript struct {
	Transcript string `json:"transcript"`
}

type docItem struct {
	StartTime    *flexNumber      `json:"start_time,omitempty"`
	EndTime      *flexNumber      `json:"end_time,omitempty"`
	Type         string           `json:"type"`
	Alternatives []docAlternative `json:"alternatives"`
	SpeakerLabel string           `json:"speaker_label,omitempty"`
}

type docAlternative struct {
	Confidence *flexNumber `json:"confidence,omitempty"`
	Content    string      `json:"content"`
}

type docSpeakerLabels struct {
	Speakers int                 `json:"speakers"`
	Segments []docSpeakerSegment `json:"segments"`
}

type docSpeakerSegment struct {
	StartTime    *flexNumber      `json:"start_time,omitempty"`
	EndTime      *flexNumber      `json:"end_time,omitempty"`
	SpeakerLabel string           `json:"speaker_label"`
	Items        []docSpeakerItem `json:"items"`
}

type docSpeakerItem struct {
	StartTime    *flexNumber `json:"start_time,omitempty"`
	EndTime      *flexNumber `json:"end_time,omitempty"`
	SpeakerLabel string      `json:"speaker_label,omitempty"`
}

// flexNumber decodes a JSON number or a numeric string.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		raw = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*n = flexNumber(v)
	return nil
}

func decodeDocument(raw []byte) (*document, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
