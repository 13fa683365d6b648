// Package outbound is the last gate before generated content leaves the
// system: it blocks exact and near-duplicate repeats and enforces minimum
// spacing between outbound actions.
package outbound

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	mentionPattern    = regexp.MustCompile(`@[\w.-]+`)
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize folds text into its dedup-canonical form: lower-cased, mentions
// and URLs stripped, whitespace collapsed, truncated to prefixLen runes.
// Near-duplicates collide by design.
func Normalize(text string, prefixLen int) string {
	s := strings.ToLower(text)
	s = mentionPattern.ReplaceAllString(s, "")
	s = urlPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) > prefixLen {
		s = string(runes[:prefixLen])
	}
	return s
}

// Fingerprint hashes the normalized form of text.
func Fingerprint(text string, prefixLen int) string {
	sum := sha256.Sum256([]byte(Normalize(text, prefixLen)))
	return hex.EncodeToString(sum[:16])
}
