package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxStemBytes leaves room for an extension and a uniqueness suffix within
// the usual 255-byte name limit.
const MaxStemBytes = 200

// FileStem derives a portable file name stem from title. Separators and
// colons become dashes, other reserved characters and control characters
// are dropped, whitespace runs collapse to one space, and leading or
// trailing dots and dashes are trimmed. The result may be empty.
func FileStem(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	space := false
	for _, r := range title {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '|':
			r = '-'
		case r == '?' || r == '"' || r == '<' || r == '>':
			continue
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r) || r == utf8.RuneError:
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return truncate(strings.Trim(b.String(), " .-"), MaxStemBytes)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRight(s[:cut], " .-")
}
