package history_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"transcriptor/internal/history"
	"transcriptor/internal/job"
	"transcriptor/internal/logging"
	"transcriptor/internal/services"
	"transcriptor/internal/testsupport"
)

var base = time.Date(2024, 3, 9, 13, 5, 6, 0, time.UTC)

func event(id string, from, to job.State, offset time.Duration) job.Event {
	return job.Event{
		JobID:   id,
		BatchID: "batch-1",
		Index:   0,
		Source:  "/in/" + id + ".mp3",
		From:    from,
		To:      to,
		At:      base.Add(offset),
	}
}

func TestRecordUpsertsLatestState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	steps := []job.Event{
		event("a", job.StatePending, job.StateUploading, 0),
		event("a", job.StateUploading, job.StateSubmitted, time.Second),
	}
	steps[1].RemoteJobID = "transcriptor_a"
	steps[1].Attempts = 2

	done := event("a", job.StateParsing, job.StateSucceeded, time.Minute)
	done.Attempts = 5
	done.Language = "en-US"
	done.Segments = 3
	steps = append(steps, done)

	for _, ev := range steps {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entry, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.State != job.StateSucceeded || entry.RemoteJobID != "transcriptor_a" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Attempts != 5 || entry.Segments != 3 || entry.Language != "en-US" {
		t.Fatalf("unexpected counters %+v", entry)
	}
	if !entry.CreatedAt.Equal(base) || !entry.UpdatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected timestamps created=%s updated=%s", entry.CreatedAt, entry.UpdatedAt)
	}
	if entry.BatchID != "batch-1" || entry.Source != "/in/a.mp3" {
		t.Fatalf("unexpected identity %+v", entry)
	}
}

func TestRecordStoresFailureKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	ev := event("f", job.StatePolling, job.StateFailed, 0)
	ev.Err = services.Wrap(services.ErrRemoteFailure, "job", "poll", "unsupported media", nil)
	if err := store.Record(ctx, ev); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	entry, err := store.Get(ctx, "f")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.ErrorKind != job.KindRemoteFailure {
		t.Fatalf("error kind = %q", entry.ErrorKind)
	}
	if entry.ErrorMessage == "" {
		t.Fatal("expected error message")
	}
}

func TestRecordRequiresJobID(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	if err := store.Record(context.Background(), job.Event{To: job.StatePending}); err == nil {
		t.Fatal("expected error without job id")
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("job-%d", i)
		if err := store.Record(ctx, event(id, job.StatePending, job.StateUploading, time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := store.List(ctx, "", 3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"job-4", "job-3", "job-2"} {
		if entries[i].JobID != want {
			t.Fatalf("entry %d = %s, want %s", i, entries[i].JobID, want)
		}
	}

	all, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 entries with default limit, got %d", len(all))
	}
}

func TestListFiltersByState(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()

	failed := event("bad", job.StatePolling, job.StateFailed, time.Second)
	failed.Err = services.Wrap(services.ErrRemoteFailure, "job", "poll", "unsupported media", nil)
	for _, ev := range []job.Event{
		event("ok", job.StateParsing, job.StateSucceeded, 0),
		failed,
		event("run", job.StatePending, job.StateUploading, 2*time.Second),
	} {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := store.List(ctx, job.StateFailed, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].JobID != "bad" {
		t.Fatalf("expected only the failed job, got %+v", entries)
	}
}

func TestGetByPrefix(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, id := range []string{"4f1c2a9e-aaaa", "4f1c77d0-bbbb", "9b0e", "9b0e11"} {
		if err := store.Record(ctx, event(id, job.StatePending, job.StateUploading, 0)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	tests := []struct {
		id      string
		want    string
		wantErr error
	}{
		{"4f1c2a9e", "4f1c2a9e-aaaa", nil},
		{"9b0e", "9b0e", nil},
		{"9b0e1", "9b0e11", nil},
		{"4f1c", "", services.ErrValidation},
		{"ffff", "", services.ErrNotFound},
		{" ", "", services.ErrValidation},
	}
	for _, tt := range tests {
		entry, err := store.Get(ctx, tt.id)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Get(%q) error = %v, want %v", tt.id, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", tt.id, err)
		}
		if entry.JobID != tt.want {
			t.Fatalf("Get(%q) = %s, want %s", tt.id, entry.JobID, tt.want)
		}
	}
}

func TestClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"x", "y"} {
		if err := store.Record(ctx, event(id, job.StatePending, job.StateUploading, 0)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	entries, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty ledger, got %d", len(entries))
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := history.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Record(ctx, event("kept", job.StatePending, job.StateUploading, 0)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := testsupport.MustOpenHistory(t, cfg)
	if _, err := second.Get(ctx, "kept"); err != nil {
		t.Fatalf("expected entry after reopen: %v", err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", cfg.HistoryPath())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	_, err = history.Open(context.Background(), cfg)
	if !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestObserverRecordsConcurrentEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	observe := store.Observer(logging.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c-%d", i)
			observe(event(id, job.StatePending, job.StateUploading, 0))
			observe(event(id, job.StateUploading, job.StateSubmitted, time.Second))
		}(i)
	}
	wg.Wait()

	entries, err := store.List(context.Background(), "", 100)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 8 {
		t.Fatalf("expected 8 entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.State != job.StateSubmitted {
			t.Fatalf("entry %s state = %s", entry.JobID, entry.State)
		}
	}
}
