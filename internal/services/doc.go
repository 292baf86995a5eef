// Package services defines shared utilities consumed by the job controller and
// its collaborator clients.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, batch IDs, and state names for
//     logging.
//   - Structured error markers plus the Wrap helper so collaborator failures
//     can be classified as retryable or terminal without string matching.
//
// Collaborator implementations live in subpackages (s3store, awstranscribe).
package services
