package job

import "context"

// Handle identifies an uploaded audio object.
type Handle struct {
	Bucket string
	Key    string
	URI    string
}

// Storage uploads audio for the recognizer to read. Delete must be idempotent:
// deleting an already deleted handle is not an error.
type Storage interface {
	Store(ctx context.Context, localPath string) (Handle, error)
	Delete(ctx context.Context, handle Handle) error
}

// SubmitOptions are forwarded to the recognizer with each submission.
// An empty LanguageHint asks the service to identify the language.
type SubmitOptions struct {
	LanguageHint  string
	SpeakerLabels bool
	MinSpeakers   int
	MaxSpeakers   int
}

// PollStatus is the coarse remote job status.
type PollStatus int

const (
	PollRunning PollStatus = iota
	PollCompleted
	PollFailed
)

func (s PollStatus) String() string {
	switch s {
	case PollCompleted:
		return "completed"
	case PollFailed:
		return "failed"
	default:
		return "running"
	}
}

// PollResult is one status observation of a remote job. ResultLocation is set
// when Status is PollCompleted; Reason when it is PollFailed.
type PollResult struct {
	Status         PollStatus
	ResultLocation string
	Reason         string
}

// Recognizer is the remote speech recognition service.
type Recognizer interface {
	Submit(ctx context.Context, handle Handle, opts SubmitOptions) (string, error)
	Poll(ctx context.Context, remoteJobID string) (PollResult, error)
	Fetch(ctx context.Context, resultLocation string) ([]byte, error)
}
