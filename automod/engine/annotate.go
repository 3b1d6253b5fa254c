package engine

import (
	"regexp"
	"strings"
)

// markers meaning "a previous pass already flagged this page for human review"
const (
	cannotAutoDeleteMarker = "{{Delete/CannotAutoDelete}}"
	clarifyPrefix          = "{{clarify"
)

var deleteTemplateOpenRe = regexp.MustCompile(`(?i)\{\{\s*delete\s*(\|)?`)

// AlreadyAnnotated reports whether the page text carries either review
// marker. The sweep skips the write entirely in that case, which is what
// makes re-running a sweep on the same category a no-op.
func AlreadyAnnotated(text string) bool {
	return strings.Contains(text, "CannotAutoDelete") ||
		strings.Contains(strings.ToLower(text), clarifyPrefix)
}

// AnnotateDeferral appends the machine-readable deferral reason into the
// page's delete-request template, producing the audit trail a human reviewer
// sees. Reports false when the text already carries a marker and must not be
// rewritten.
func AnnotateDeferral(text, reason string) (string, bool) {
	if AlreadyAnnotated(text) {
		return text, false
	}
	marker := " {{clarify|" + reason + "}} " + cannotAutoDeleteMarker

	// insert inside the existing {{delete|...}} template when there is one
	if loc := deleteTemplateOpenRe.FindStringIndex(text); loc != nil {
		if end := strings.Index(text[loc[1]:], "}}"); end >= 0 {
			at := loc[1] + end
			return text[:at] + marker + text[at:], true
		}
	}
	// no request template; lead with one so the category listing shows it
	return "{{delete|" + strings.TrimSpace(marker) + "}}\n" + text, true
}
