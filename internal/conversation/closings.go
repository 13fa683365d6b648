package conversation

import (
	"regexp"
	"strings"
)

// Low-information closing detection: acknowledgment and thank-you phrasing
// that carries no new substantive content. Used by the thank-you-chain
// short-circuit here and by the outbound pruning sweeps.
var closingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^thanks?( (so much|a lot|again))?[!. ]*$`),
	regexp.MustCompile(`(?i)^thank you( (so much|again|both))?[!. ]*$`),
	regexp.MustCompile(`(?i)^(much )?appreciated?[!. ]*$`),
	regexp.MustCompile(`(?i)^(you're|youre) welcome[!. ]*$`),
	regexp.MustCompile(`(?i)^(glad|happy) (to help|you liked it|it helped)[!. ]*$`),
	regexp.MustCompile(`(?i)^(sounds good|will do|got it|agreed)[!. ]*$`),
	regexp.MustCompile(`(?i)^(likewise|same here|cheers|take care)[!. ]*$`),
	regexp.MustCompile(`(?i)^(great|awesome|nice|cool|perfect|exactly)[!. ]*$`),
	regexp.MustCompile(`(?i)^(no problem|anytime|my pleasure)[!. ]*$`),
}

// maxClosingWords: anything longer than this is presumed substantive even
// if it opens with an acknowledgment.
const maxClosingWords = 8

// DefaultClosingClassifier reports whether text is a low-information
// closing. Short acknowledgment-shaped messages qualify; anything with real
// length or content does not.
func DefaultClosingClassifier(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if len(strings.Fields(trimmed)) > maxClosingWords {
		return false
	}
	for _, pat := range closingPatterns {
		if pat.MatchString(trimmed) {
			return true
		}
	}
	// Emoji-only or punctuation-only replies are closings too.
	stripped := strings.TrimFunc(trimmed, func(r rune) bool {
		return r >= 0x1F000 || strings.ContainsRune("!.,?~ ", r)
	})
	return stripped == ""
}
