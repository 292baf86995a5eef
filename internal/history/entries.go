package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"transcriptor/internal/job"
	"transcriptor/internal/logging"
	"transcriptor/internal/services"
)

const timeLayout = time.RFC3339Nano

// DefaultListLimit bounds List when the caller passes zero.
const DefaultListLimit = 20

// Entry is the latest known state of one job.
type Entry struct {
	JobID        string
	BatchID      string
	Index        int
	Source       string
	State        job.State
	RemoteJobID  string
	Language     string
	Segments     int
	Attempts     int
	ErrorKind    job.ErrorKind
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Record upserts the job row described by ev.
func (s *Store) Record(ctx context.Context, ev job.Event) error {
	if ev.JobID == "" {
		return errors.New("record history: event has no job id")
	}
	var message string
	if ev.Err != nil {
		message = ev.Err.Error()
	}
	at := ev.At.UTC().Format(timeLayout)
	_, err := s.execWithRetry(ctx, `
INSERT INTO jobs (
    job_id, batch_id, job_index, source, state, remote_job_id, language,
    segments, attempts, error_kind, error_message, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(job_id) DO UPDATE SET
    state = excluded.state,
    remote_job_id = CASE WHEN excluded.remote_job_id != '' THEN excluded.remote_job_id ELSE jobs.remote_job_id END,
    language = CASE WHEN excluded.language != '' THEN excluded.language ELSE jobs.language END,
    segments = excluded.segments,
    attempts = excluded.attempts,
    error_kind = excluded.error_kind,
    error_message = excluded.error_message,
    updated_at = excluded.updated_at`,
		ev.JobID, ev.BatchID, ev.Index, ev.Source, string(ev.To), ev.RemoteJobID, ev.Language,
		ev.Segments, ev.Attempts, string(job.Kind(ev.Err)), message, at, at,
	)
	if err != nil {
		return fmt.Errorf("record history for job %s: %w", ev.JobID, err)
	}
	return nil
}

// Observer adapts Record to a job.Observer. Write failures are logged and
// never reach the job.
func (s *Store) Observer(logger *slog.Logger) job.Observer {
	logger = logging.NewComponentLogger(logger, "history")
	return func(ev job.Event) {
		if err := s.Record(context.Background(), ev); err != nil {
			logging.WarnWithContext(logger, "history write failed", "history_write",
				logging.String("job_id", ev.JobID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on "+s.path),
			)
		}
	}
}

const selectEntry = `
SELECT job_id, batch_id, job_index, source, state, remote_job_id, language,
       segments, attempts, error_kind, error_message, created_at, updated_at
FROM jobs`

// List returns the most recently updated jobs, newest first. A non-empty
// state limits the result to jobs currently in that state.
func (s *Store) List(ctx context.Context, state job.State, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), selectEntry+`
WHERE ? = '' OR state = ?
ORDER BY updated_at DESC, job_id
LIMIT ?`, string(state), string(state), limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns the job whose id is id or, failing an exact match, the only job
// whose id starts with id. Unknown ids wrap services.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, services.Wrap(services.ErrValidation, "history", "get", "job id is required", nil)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), selectEntry+`
WHERE job_id = ? OR substr(job_id, 1, length(?)) = ?
ORDER BY job_id = ? DESC, job_id
LIMIT 2`, id, id, id, id)
	if err != nil {
		return Entry{}, fmt.Errorf("get history entry %s: %w", id, err)
	}
	defer rows.Close()

	var matches []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return Entry{}, err
		}
		matches = append(matches, entry)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, err
	}
	switch {
	case len(matches) == 0:
		return Entry{}, services.Wrap(services.ErrNotFound, "history", "get", "no job "+id, nil)
	case matches[0].JobID == id || len(matches) == 1:
		return matches[0], nil
	default:
		return Entry{}, services.Wrap(services.ErrValidation, "history", "get",
			fmt.Sprintf("job id prefix %s is ambiguous", id), nil)
	}
}

// Clear removes every job row and reports how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := s.withFileLock(ctx, func() error {
		res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
		if err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry            Entry
		state, kind      string
		created, updated string
	)
	if err := row.Scan(
		&entry.JobID, &entry.BatchID, &entry.Index, &entry.Source, &state, &entry.RemoteJobID,
		&entry.Language, &entry.Segments, &entry.Attempts, &kind, &entry.ErrorMessage,
		&created, &updated,
	); err != nil {
		return Entry{}, err
	}
	entry.State = job.State(state)
	entry.ErrorKind = job.ErrorKind(kind)
	entry.CreatedAt = parseTime(created)
	entry.UpdatedAt = parseTime(updated)
	return entry, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
