// Package ffprobe runs ffprobe against a media file and decodes the streams
// and container duration.
//
// Source resolution uses Inspect to reject inputs without an audio stream
// before anything is uploaded, and to record the source duration.
package ffprobe
