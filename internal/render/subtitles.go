package render

import (
	"bytes"
	"strconv"

	"transcriptor/internal/transcript"
)

const vttHeader = "WEBVTT\n\n"

// SRT renders SubRip cues numbered from 1.
func SRT(t *transcript.Transcript, opts Options) []byte {
	mustValid(t)
	var buf bytes.Buffer
	writeCues(&buf, t, opts.Precision, ',')
	return buf.Bytes()
}

// VTT renders a WebVTT document. An empty transcript yields only the header.
func VTT(t *transcript.Transcript, opts Options) []byte {
	mustValid(t)
	var buf bytes.Buffer
	buf.WriteString(vttHeader)
	writeCues(&buf, t, opts.Precision, '.')
	return buf.Bytes()
}

func writeCues(buf *bytes.Buffer, t *transcript.Transcript, precision Precision, sep byte) {
	for i, c := range cues(t, precision) {
		buf.WriteString(strconv.Itoa(i + 1))
		buf.WriteByte('\n')
		buf.WriteString(formatClock(c.startMs, sep))
		buf.WriteString(" --> ")
		buf.WriteString(formatClock(c.endMs, sep))
		buf.WriteByte('\n')
		buf.WriteString(speakerPrefix(c.speaker))
		buf.WriteString(c.text)
		buf.WriteString("\n\n")
	}
}
