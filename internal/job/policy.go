package job

import (
	"time"

	"transcriptor/internal/resultparser"
	"transcriptor/internal/transcript"
)

// Policy holds the timing and retry settings shared by every job a
// Controller runs.
type Policy struct {
	// MaxAttempts caps attempts per collaborator call, first try included.
	MaxAttempts    int
	RetryBackoff   Backoff
	PollBackoff    Backoff
	Timeout        time.Duration
	CleanupTimeout time.Duration

	SilenceThresholdMs uint64
	MaxSegmentMs       uint64
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:        4,
		RetryBackoff:       Backoff{Initial: time.Second, Max: 20 * time.Second, Multiplier: 2},
		PollBackoff:        Backoff{Initial: 5 * time.Second, Max: 30 * time.Second, Multiplier: 1.5},
		Timeout:            120 * time.Minute,
		CleanupTimeout:     30 * time.Second,
		SilenceThresholdMs: resultparser.DefaultSilenceThresholdMs,
		MaxSegmentMs:       resultparser.DefaultMaxSegmentMs,
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	if p.CleanupTimeout <= 0 {
		p.CleanupTimeout = def.CleanupTimeout
	}
	if p.PollBackoff.Initial <= 0 {
		p.PollBackoff = def.PollBackoff
	}
	return p
}

// Options are the per-job request settings.
type Options struct {
	// Language is a user-supplied hint; empty asks the service to identify it.
	Language           string
	SpeakerLabels      bool
	MaxSpeakers        int
	DetailedTimestamps bool
	// RetainUpload skips deleting the uploaded audio after the job ends.
	RetainUpload bool
}

// speakerRange clamps the requested speaker count to what the service accepts.
func (o Options) speakerRange() (int, int) {
	maxSpeakers := o.MaxSpeakers
	if maxSpeakers == 0 {
		maxSpeakers = transcript.MaxSpeakers
	}
	maxSpeakers = min(max(maxSpeakers, transcript.MinSpeakers), transcript.MaxSpeakers)
	return transcript.MinSpeakers, maxSpeakers
}

// Spec describes one unit of work: a local audio file and its options.
type Spec struct {
	SourceFile string
	// Label is the user-facing name of the input; defaults to SourceFile.
	Label   string
	Options Options
}

func (s Spec) label() string {
	if s.Label != "" {
		return s.Label
	}
	return s.SourceFile
}
