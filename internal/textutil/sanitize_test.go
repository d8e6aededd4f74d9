package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "My Mix Tape", "My Mix Tape"},
		{"slashes become dashes", "AC/DC Live", "AC-DC Live"},
		{"colon becomes dash", "Part 1: The Return", "Part 1- The Return"},
		{"removed characters", `What? "Quoted" <angle> |pipe|`, "What Quoted angle pipe"},
		{"trimmed", "  spaced out  ", "spaced out"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFileName(tt.input); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripDiacritics(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"accents", "Beyoncé — Café del Mar", "Beyonce — Cafe del Mar"},
		{"umlauts", "Motörhead Überjam", "Motorhead Uberjam"},
		{"cjk passes through", "東京ナイト", "東京ナイト"},
		{"plain ascii", "plain ascii", "plain ascii"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripDiacritics(tt.input); got != tt.want {
				t.Errorf("StripDiacritics(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMediaFileName(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		fallback string
		limit    int
		want     string
	}{
		{"normal title", "Café Tacvba: Eres", "media", 70, "Cafe Tacvba- Eres"},
		{"empty falls back", "", "media", 70, "media"},
		{"only unsafe falls back", `?"<>|`, "media", 70, "media"},
		{"truncated", "abcdefghij", "media", 4, "abcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MediaFileName(tt.title, tt.fallback, tt.limit)
			if got != tt.want {
				t.Errorf("MediaFileName(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "YouTube", "youtube"},
		{"spaces to underscores", "fb watch", "fb_watch"},
		{"keeps digits", "track01", "track01"},
		{"empty", "", "unknown"},
		{"only separators", "--__", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.input); got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"under limit", "short", 64, "short"},
		{"exact limit", "abcd", 4, "abcd"},
		{"over limit", "abcdef", 4, "abcd"},
		{"multibyte boundary", "日本語のタイトル", 3, "日本語"},
		{"zero limit returns input", "anything", 0, "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateRunes(tt.input, tt.limit); got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.limit, got, tt.want)
			}
		})
	}
}
