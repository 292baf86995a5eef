// Package job drives a single transcription request through its lifecycle:
// upload, submit, poll, fetch, parse, and cleanup.
//
// A Controller owns no per-job state; each Run call builds its own job record,
// so one Controller can serve many concurrent jobs. Collaborators (Storage,
// Recognizer) and the Clock are injected, which lets tests simulate hours of
// polling without real waits.
package job
