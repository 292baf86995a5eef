// Package transcript defines the canonical in-memory representation of a
// transcribed document: time-ordered segments, optional word timing, and the
// set of speakers referenced by those segments.
//
// Values are built through New, which enforces ordering, bounds, and speaker
// invariants so renderers can treat every Transcript they receive as valid.
package transcript
