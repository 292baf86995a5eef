package render

import (
	"bytes"
	"strconv"
	"strings"

	"transcriptor/internal/transcript"
)

const csvHeader = "start_ms,end_ms,speaker,text\n"

// CSV renders a header row followed by one row per segment (or per word at
// word precision). The text column is always quoted.
func CSV(t *transcript.Transcript, opts Options) []byte {
	mustValid(t)
	var buf bytes.Buffer
	buf.WriteString(csvHeader)
	for _, c := range cues(t, opts.Precision) {
		buf.WriteString(strconv.FormatUint(c.startMs, 10))
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatUint(c.endMs, 10))
		buf.WriteByte(',')
		buf.WriteString(csvField(c.speaker, false))
		buf.WriteByte(',')
		buf.WriteString(csvField(c.text, true))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func csvField(value string, forceQuote bool) string {
	if !forceQuote && !strings.ContainsAny(value, ",\"\r\n") && strings.TrimSpace(value) == value {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
