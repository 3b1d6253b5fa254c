// Package keyword has text scrubbing helpers used when preparing chat and wiki
// notification text for the external vandalism classifier.
package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// StripLinkBrackets removes square brackets from text. Wiki notifications wrap
// titles and usernames in link markup, and the classifier treats brackets as
// characters that can obscure words (a "[" reads as a "c").
func StripLinkBrackets(text string) string {
	return strings.NewReplacer("[", "", "]", "").Replace(text)
}

// RemoveFalseTriggers removes each configured phrase from the text, whole-word
// and case-insensitive. These are phrases known to trip the remote classifier
// on an embedded substring. The trailing `(?:\s|\b)` collapses the double
// space left behind when the phrase is mid-sentence.
func RemoveFalseTriggers(text string, phrases []string) string {
	for _, phrase := range phrases {
		re, err := regexp.Compile(`(?i)\b(` + regexp.QuoteMeta(phrase) + `)(?:\s|\b)`)
		if err != nil {
			slog.Warn("unusable false-trigger phrase", "phrase", phrase, "err", err)
			continue
		}
		text = re.ReplaceAllString(text, "")
	}
	return text
}

// NormalizeToken lower-cases and strips diacritics from a single token.
func NormalizeToken(tok string) string {
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(normFunc, strings.ToLower(tok))
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		return strings.ToLower(tok)
	}
	return out
}

// TokenizeText splits free-form text into normalized tokens, dropping
// punctuation. Used for whole-word whitelist comparisons.
func TokenizeText(text string) []string {
	split := nonTokenChars.ReplaceAllString(text, " ")
	fields := strings.Fields(split)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, NormalizeToken(f))
	}
	return out
}

// TokenInSet checks a single token against a list of tokens.
func TokenInSet(tok string, set []string) bool {
	for _, s := range set {
		if tok == s {
			return true
		}
	}
	return false
}
