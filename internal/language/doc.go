// Package language normalizes user language hints into the locale codes the
// speech recognition service accepts.
//
// Hints may be ISO 639-1 or 639-2 codes, English language names, or full
// BCP 47 locales. Short forms map to a default locale per language.
package language
