// Package history keeps a local SQLite ledger of transcription jobs.
//
// Every job state transition is upserted into a single row keyed by job id,
// so the table always holds the latest known state of each job along with the
// batch it ran in, the remote job id, attempt count, and failure detail. The
// CLI owns the ledger; the job controller and scheduler never read it back.
//
// Schema changes bump schemaVersion in schema.go. A ledger written by another
// version fails to open with ErrSchemaMismatch and must be deleted.
package history
