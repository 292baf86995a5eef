package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// showEntries limits ffprobe output to the fields source resolution reads.
const showEntries = "stream=index,codec_name,codec_type,sample_rate,channels,duration:format=filename,format_name,duration"

// Result is the subset of ffprobe output needed to accept an audio source.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one container stream.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`
}

// Format is container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Inspect runs ffprobe on path. An empty binary means "ffprobe" on PATH.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe: no input path")
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-of", "json", "-show_entries", showEntries, "--", path)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, msg)
		}
		return Result{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var result Result
	if err := json.Unmarshal(out, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: decode output: %w", path, err)
	}
	return result, nil
}

// AudioStreams returns the audio streams in container order.
func (r Result) AudioStreams() []Stream {
	var audio []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			audio = append(audio, stream)
		}
	}
	return audio
}

func (r Result) HasAudio() bool {
	return len(r.AudioStreams()) > 0
}

// Duration is the container duration, falling back to the longest audio
// stream. Zero when neither is reported.
func (r Result) Duration() time.Duration {
	if d := seconds(r.Format.Duration); d > 0 {
		return d
	}
	var longest time.Duration
	for _, stream := range r.AudioStreams() {
		longest = max(longest, seconds(stream.Duration))
	}
	return longest
}

func seconds(value string) time.Duration {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
