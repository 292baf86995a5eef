package testsupport

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"transcriptor/internal/job"
)

// FakeStorage records uploads and deletions. Active uploads are counted from
// a successful Store until the matching Delete.
type FakeStorage struct {
	StoreFunc  func(ctx context.Context, path string) (job.Handle, error)
	DeleteFunc func(ctx context.Context, handle job.Handle) error

	mu      sync.Mutex
	stored  []string
	deleted []job.Handle
	active  int
	peak    int
}

func (s *FakeStorage) Store(ctx context.Context, path string) (job.Handle, error) {
	s.mu.Lock()
	s.stored = append(s.stored, path)
	s.mu.Unlock()

	var (
		handle job.Handle
		err    error
	)
	if s.StoreFunc != nil {
		handle, err = s.StoreFunc(ctx, path)
	} else {
		key := "audio/" + filepath.Base(path)
		handle = job.Handle{Bucket: "test-bucket", Key: key, URI: "s3://test-bucket/" + key}
	}
	if err != nil {
		return job.Handle{}, err
	}

	s.mu.Lock()
	s.active++
	s.peak = max(s.peak, s.active)
	s.mu.Unlock()
	return handle, nil
}

func (s *FakeStorage) Delete(ctx context.Context, handle job.Handle) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, handle)
	s.active--
	s.mu.Unlock()
	if s.DeleteFunc != nil {
		return s.DeleteFunc(ctx, handle)
	}
	return nil
}

// Stored returns every path passed to Store, including failed calls.
func (s *FakeStorage) Stored() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.stored...)
}

// Deleted returns every handle passed to Delete.
func (s *FakeStorage) Deleted() []job.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]job.Handle(nil), s.deleted...)
}

// Peak returns the highest number of simultaneously live uploads.
func (s *FakeStorage) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// FakeRecognizer completes every job on the first poll unless overridden.
type FakeRecognizer struct {
	SubmitFunc func(ctx context.Context, handle job.Handle, opts job.SubmitOptions) (string, error)
	// PollFunc receives the 1-based poll count for the remote job.
	PollFunc  func(ctx context.Context, remoteJobID string, n int) (job.PollResult, error)
	FetchFunc func(ctx context.Context, location string) ([]byte, error)
	// Result is returned by the default Fetch; TranscribeResult when empty.
	Result []byte

	mu      sync.Mutex
	submits []job.SubmitOptions
	polls   map[string]int
	fetches []string
}

func (r *FakeRecognizer) Submit(ctx context.Context, handle job.Handle, opts job.SubmitOptions) (string, error) {
	r.mu.Lock()
	r.submits = append(r.submits, opts)
	r.mu.Unlock()
	if r.SubmitFunc != nil {
		return r.SubmitFunc(ctx, handle, opts)
	}
	return "remote-" + filepath.Base(handle.Key), nil
}

func (r *FakeRecognizer) Poll(ctx context.Context, remoteJobID string) (job.PollResult, error) {
	r.mu.Lock()
	if r.polls == nil {
		r.polls = make(map[string]int)
	}
	r.polls[remoteJobID]++
	n := r.polls[remoteJobID]
	r.mu.Unlock()
	if r.PollFunc != nil {
		return r.PollFunc(ctx, remoteJobID, n)
	}
	return job.PollResult{Status: job.PollCompleted, ResultLocation: fmt.Sprintf("https://results.test/%s.json", remoteJobID)}, nil
}

func (r *FakeRecognizer) Fetch(ctx context.Context, location string) ([]byte, error) {
	r.mu.Lock()
	r.fetches = append(r.fetches, location)
	r.mu.Unlock()
	if r.FetchFunc != nil {
		return r.FetchFunc(ctx, location)
	}
	if len(r.Result) > 0 {
		return r.Result, nil
	}
	return []byte(TranscribeResult), nil
}

// Submits returns the options of every Submit call.
func (r *FakeRecognizer) Submits() []job.SubmitOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]job.SubmitOptions(nil), r.submits...)
}

// Polls returns how many times remoteJobID was polled.
func (r *FakeRecognizer) Polls(remoteJobID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.polls[remoteJobID]
}

// Fetches returns every location passed to Fetch.
func (r *FakeRecognizer) Fetches() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fetches...)
}

// EventRecorder collects job events from concurrent jobs.
type EventRecorder struct {
	mu     sync.Mutex
	events []job.Event
}

// Observe is a job.Observer.
func (r *EventRecorder) Observe(ev job.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns recorded events, optionally filtered to one job index.
func (r *EventRecorder) Events(index int) []job.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []job.Event
	for _, ev := range r.events {
		if index < 0 || ev.Index == index {
			out = append(out, ev)
		}
	}
	return out
}
