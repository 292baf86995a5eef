package language

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// short codes map to default locales
		{"en", "en-US"},
		{"EN", "en-US"},
		{"es", "es-ES"},
		{"pt", "pt-BR"},
		{"zh", "zh-CN"},
		// 3-letter codes
		{"eng", "en-US"},
		{"fre", "fr-FR"},
		{"ger", "de-DE"},
		// word forms
		{"english", "en-US"},
		{"Japanese", "ja-JP"},
		// full locales keep their region
		{"en-GB", "en-GB"},
		{"en_gb", "en-GB"},
		{"FR-ca", "fr-CA"},
		{"en-Latn-US", "en-US"},
		// empty means auto-detect
		{"", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q) failed: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeUnsupported(t *testing.T) {
	for _, input := range []string{"xx", "klingon", "en-BR", "not a tag"} {
		_, err := Normalize(input)
		if err == nil {
			t.Fatalf("Normalize(%q) expected error", input)
		}
		if !errors.Is(err, ErrUnsupported) {
			t.Fatalf("Normalize(%q) error %v is not ErrUnsupported", input, err)
		}
	}
}

func TestIsSupportedAndCanonical(t *testing.T) {
	if !IsSupported("en-US") || !IsSupported("ja-jp") {
		t.Fatal("expected supported locales")
	}
	if IsSupported("en") {
		t.Fatal("bare language is not a locale")
	}
	got, err := Canonical("de_ch")
	if err != nil || got != "de-CH" {
		t.Fatalf("Canonical = %q, %v", got, err)
	}
	if _, err := Canonical("xx-YY"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

func TestSupportedSorted(t *testing.T) {
	list := Supported()
	if len(list) < len(languages) {
		t.Fatalf("expected at least %d locales, got %d", len(languages), len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1] > list[i] {
			t.Fatalf("list not sorted at %d: %q > %q", i, list[i-1], list[i])
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"":      "Auto",
		"en":    "English",
		"fra":   "French",
		"pt-PT": "Portuguese (pt-PT)",
		"zz-ZZ": "zz-ZZ",
	}
	for input, want := range tests {
		if got := DisplayName(input); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}
