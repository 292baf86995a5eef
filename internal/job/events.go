package job

import (
	"time"

	"transcriptor/internal/transcript"
)

// Event reports one state transition.
type Event struct {
	JobID       string
	BatchID     string
	Index       int
	Source      string
	From        State
	To          State
	Attempts    int
	RemoteJobID string
	// Language is the requested hint until a transcript exists, then the
	// transcript's locale.
	Language string
	Segments int
	Err      error
	At       time.Time
}

// Observer receives transition events. It may be called from many goroutines
// at once.
type Observer func(Event)

// Outcome is the terminal record of a job.
type Outcome struct {
	Index       int
	JobID       string
	Source      string
	SourceFile  string
	State       State
	Transcript  *transcript.Transcript
	Err         error
	RemoteJobID string
	// Attempts counts every collaborator call made on behalf of the job.
	Attempts   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the job produced a transcript.
func (o Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}

// Elapsed is the wall time between start and finish.
func (o Outcome) Elapsed() time.Duration {
	if o.StartedAt.IsZero() || o.FinishedAt.Before(o.StartedAt) {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
