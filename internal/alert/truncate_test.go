package alert

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short untouched", "hello", 10, "hello"},
		{"exact length untouched", "hello", 5, "hello"},
		{"ascii cut", "hello world", 5, "he\u2026"},
		{"tiny max has no marker room", "hello", 2, "he"},
		{"zero", "hello", 0, ""},
		{"negative", "hello", -1, ""},
		{"empty", "", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncateNeverExceedsMax(t *testing.T) {
	// Two-byte runes make odd cut points land mid-rune.
	s := strings.Repeat("\u0439", 10)
	for max := 1; max <= len(s)+1; max++ {
		got := Truncate(s, max)
		if len(got) > max {
			t.Fatalf("Truncate(%d) returned %d bytes", max, len(got))
		}
		if !utf8.ValidString(got) {
			t.Fatalf("Truncate(%d) produced invalid UTF-8: %q", max, got)
		}
	}
}

func TestTruncateFourByteRunes(t *testing.T) {
	s := "abc\U0001F600def" // emoji is four bytes
	got := Truncate(s, 8)   // cut lands inside the emoji
	if got != "abc\u2026" {
		t.Errorf("got %q", got)
	}
	if len(got) > 8 || !utf8.ValidString(got) {
		t.Errorf("bound or encoding violated: %q (%d bytes)", got, len(got))
	}
}
