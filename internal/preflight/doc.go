// Package preflight provides readiness checks for the binaries, directories,
// and AWS resources transcriptor depends on.
//
// These checks run in two contexts:
//   - The transcribe command calls RunAll before uploading anything. A failed
//     required check aborts the batch.
//   - The CLI "transcriptor check" command prints every result, including
//     optional dependencies.
package preflight
