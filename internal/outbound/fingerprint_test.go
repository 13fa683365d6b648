package outbound

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Hello World", "hello world"},
		{"strips mentions", "hey @alice.example check this", "hey check this"},
		{"strips urls", "see https://example.com/a/b for details", "see for details"},
		{"collapses whitespace", "a\n\t b   c", "a b c"},
		{"trims edges", "  padded  ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in, 120); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTruncatesRunes(t *testing.T) {
	long := strings.Repeat("é", 200)
	got := Normalize(long, 120)
	if n := len([]rune(got)); n != 120 {
		t.Errorf("rune length = %d, want 120", n)
	}
}

func TestFingerprintCollisions(t *testing.T) {
	// Near-duplicates collide.
	a := Fingerprint("Building resilient systems is hard", 120)
	b := Fingerprint("  building   RESILIENT systems is hard ", 120)
	if a != b {
		t.Error("case/whitespace variants should share a fingerprint")
	}

	// Divergent tails beyond the prefix collide too.
	base := strings.Repeat("same prefix ", 20)
	c := Fingerprint(base+"tail one", 120)
	d := Fingerprint(base+"tail two", 120)
	if c != d {
		t.Error("texts sharing the truncated prefix should collide")
	}

	// Different content does not.
	if Fingerprint("alpha", 120) == Fingerprint("beta", 120) {
		t.Error("distinct texts should not collide")
	}
}
