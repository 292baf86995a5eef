// Command transcriptor turns audio and video sources into timestamped,
// speaker-labelled transcripts using Amazon Transcribe.
//
// The root command transcribes its arguments. Subcommands manage the
// configuration file, list supported platforms, inspect the local job
// history, and check external dependencies.
package main
