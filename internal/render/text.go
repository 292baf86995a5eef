package render

import (
	"bytes"
	"fmt"

	"transcriptor/internal/transcript"
)

// Text renders one line per segment, each terminated by a newline.
func Text(t *transcript.Transcript, opts Options) []byte {
	mustValid(t)
	var buf bytes.Buffer
	for _, seg := range t.Segments {
		if opts.Timestamps {
			buf.WriteString(textTimestamp(seg.StartMs, opts.Precision))
			buf.WriteByte(' ')
		}
		buf.WriteString(speakerPrefix(seg.SpeakerID))
		buf.WriteString(seg.Text)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func textTimestamp(ms uint64, precision Precision) string {
	h, m, s, rem := clockParts(ms)
	if precision == PrecisionWord {
		return fmt.Sprintf("[%02d:%02d:%02d.%03d]", h, m, s, rem)
	}
	return fmt.Sprintf("[%02d:%02d:%02d]", h, m, s)
}
