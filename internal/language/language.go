package language

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	xlanguage "golang.org/x/text/language"
)

// ErrUnsupported marks hints and detected codes outside the supported locales.
var ErrUnsupported = errors.New("unsupported language")

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
	locale  string   // default locale for short hints
	extra   []string // other supported regional locales
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}, "en-US", []string{"en-GB", "en-AU", "en-IN", "en-IE", "en-NZ", "en-ZA"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}, "es-ES", []string{"es-US"}},
	{"fr", "fra", "fre", "French", []string{"french"}, "fr-FR", []string{"fr-CA"}},
	{"de", "deu", "ger", "German", []string{"german"}, "de-DE", []string{"de-CH"}},
	{"it", "ita", "", "Italian", []string{"italian"}, "it-IT", nil},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}, "pt-BR", []string{"pt-PT"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}, "ja-JP", nil},
	{"ko", "kor", "", "Korean", []string{"korean"}, "ko-KR", nil},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}, "zh-CN", []string{"zh-TW"}},
	{"ru", "rus", "", "Russian", []string{"russian"}, "ru-RU", nil},
	{"ar", "ara", "", "Arabic", []string{"arabic"}, "ar-SA", []string{"ar-AE"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}, "hi-IN", nil},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}, "nl-NL", nil},
	{"pl", "pol", "", "Polish", []string{"polish"}, "pl-PL", nil},
	{"sv", "swe", "", "Swedish", []string{"swedish"}, "sv-SE", nil},
	{"da", "dan", "", "Danish", []string{"danish"}, "da-DK", nil},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}, "no-NO", nil},
	{"fi", "fin", "", "Finnish", []string{"finnish"}, "fi-FI", nil},
	{"tr", "tur", "", "Turkish", []string{"turkish"}, "tr-TR", nil},
	{"he", "heb", "", "Hebrew", []string{"hebrew"}, "he-IL", nil},
	{"id", "ind", "", "Indonesian", []string{"indonesian"}, "id-ID", nil},
}

var (
	byCode2  map[string]*entry
	byCode3  map[string]*entry
	byWord   map[string]*entry
	byLocale map[string]localeRef
)

type localeRef struct {
	canonical string
	e         *entry
}

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	byLocale = make(map[string]localeRef, len(languages)*2)
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
		byLocale[strings.ToLower(e.locale)] = localeRef{canonical: e.locale, e: e}
		for _, loc := range e.extra {
			byLocale[strings.ToLower(loc)] = localeRef{canonical: loc, e: e}
		}
	}
}

// UnsupportedError reports a language outside the supported locales.
type UnsupportedError struct {
	Code string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnsupported, e.Code)
}

// Is reports whether target is ErrUnsupported.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Normalize converts a user hint into a supported locale. An empty hint
// returns an empty string, which callers treat as "detect automatically".
func Normalize(hint string) (string, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "", nil
	}
	if e := lookup(hint); e != nil {
		return e.locale, nil
	}
	locale, ok := canonicalLocale(hint)
	if !ok {
		return "", &UnsupportedError{Code: hint}
	}
	return locale, nil
}

// IsSupported reports whether locale is a supported locale code.
func IsSupported(locale string) bool {
	_, ok := canonicalLocale(locale)
	return ok
}

// Canonical returns the supported spelling of locale ("EN_us" becomes "en-US").
func Canonical(locale string) (string, error) {
	canonical, ok := canonicalLocale(locale)
	if !ok {
		return "", &UnsupportedError{Code: locale}
	}
	return canonical, nil
}

func canonicalLocale(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if ref, ok := byLocale[strings.ToLower(strings.ReplaceAll(value, "_", "-"))]; ok {
		return ref.canonical, true
	}
	tag, err := xlanguage.Parse(value)
	if err != nil {
		return "", false
	}
	base, baseConf := tag.Base()
	region, regionConf := tag.Region()
	if baseConf == xlanguage.No || regionConf != xlanguage.Exact {
		return "", false
	}
	ref, ok := byLocale[strings.ToLower(base.String()+"-"+region.String())]
	if !ok {
		return "", false
	}
	return ref.canonical, true
}

// Supported returns every supported locale, sorted.
func Supported() []string {
	out := make([]string, 0, len(byLocale))
	for i := range languages {
		out = append(out, languages[i].locale)
		out = append(out, languages[i].extra...)
	}
	sort.Strings(out)
	return out
}

// DisplayName returns a human-readable name for a code or locale.
// Returns "Auto" for empty input, or the input unchanged when unrecognized.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Auto"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	if canonical, ok := canonicalLocale(code); ok {
		ref := byLocale[strings.ToLower(canonical)]
		return fmt.Sprintf("%s (%s)", ref.e.display, canonical)
	}
	return code
}
