// Package textutil turns remote media titles into file name stems for saved
// transcripts and audio.
package textutil
