// Package source turns a user-supplied input into a local audio file ready
// for upload.
//
// Inputs may be local files, direct media URLs, or pages on a supported
// video platform. Platform pages are downloaded with yt-dlp; direct URLs over
// HTTP. Every resolved file is inspected with ffprobe and, when its container
// is not accepted by the recognizer, converted to MP3 with ffmpeg.
//
// Files created during resolution live in the work directory and are removed
// by Resolved.Cleanup.
package source
