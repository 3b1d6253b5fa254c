package profanity

import (
	"context"
	"log/slog"
	"strings"

	"github.com/inkipedia/wikimod/automod/keyword"
)

// Severity tier of a vandalism report, the highest intensity among the
// classifier matches that survived whitelist filtering.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "low"
	}
}

// VandalismReport is built per notification event and not persisted.
type VandalismReport struct {
	MatchedPhrases []string
	Tier           Severity
	SourceUser     string
	MessageLink    string
}

// WordLists supplies the configured whitelist and false-trigger phrases.
// Implemented by permstore.Service.
type WordLists interface {
	Whitelist() []string
	FalseTriggers() []string
}

// notification text is only scored when it announces a new page or a new
// account (emoji in the notifier's format, shortcode or literal)
var newContentIndicators = []string{":new:", "\U0001F195", ":wave:", "\U0001F44B", ":outbox_tray:", "\U0001F4E4"}

// Scorer turns inbound notification text into an optional VandalismReport.
type Scorer struct {
	Logger  *slog.Logger
	Client  *Client
	Words   WordLists
	Vandals VandalStore
}

// Relevant reports whether the text carries a new-page or new-account
// indicator at all; irrelevant events skip the remote call entirely.
func (s *Scorer) Relevant(text string) bool {
	for _, ind := range newContentIndicators {
		if strings.Contains(text, ind) {
			return true
		}
	}
	return false
}

// ScoreEvent scrubs and submits the text and returns a report when any
// non-whitelisted match remains. Endpoint failures are logged and reported as
// no-report rather than surfaced; one broken check must not block other event
// processing.
func (s *Scorer) ScoreEvent(ctx context.Context, text, sourceUser, messageLink string) *VandalismReport {
	if !s.Relevant(text) {
		return nil
	}

	cleaned := keyword.StripLinkBrackets(text)
	cleaned = keyword.RemoveFalseTriggers(cleaned, s.Words.FalseTriggers())

	s.Logger.Debug("querying profanity check", "text", cleaned)
	matches, err := s.Client.Check(ctx, cleaned)
	if err != nil {
		s.Logger.Error("profanity check unavailable", "err", err)
		return nil
	}

	whitelist := s.Words.Whitelist()
	var phrases []string
	tier := SeverityLow
	for _, m := range matches {
		if keyword.TokenInSet(m.Match, whitelist) {
			continue
		}
		phrases = append(phrases, m.Match)
		switch m.Intensity {
		case IntensityHigh:
			tier = SeverityHigh
		case IntensityMedium:
			if tier != SeverityHigh {
				tier = SeverityMedium
			}
		}
	}
	if len(phrases) == 0 {
		s.Logger.Info("notification text checked clean", "user", sourceUser)
		return nil
	}

	if err := s.Vandals.Add(ctx, sourceUser); err != nil {
		s.Logger.Error("recording recent vandal", "user", sourceUser, "err", err)
	}
	vandalismReportCount.WithLabelValues(tier.String()).Inc()
	return &VandalismReport{
		MatchedPhrases: phrases,
		Tier:           tier,
		SourceUser:     sourceUser,
		MessageLink:    messageLink,
	}
}
