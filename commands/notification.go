package commands

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/inkipedia/wikimod/automod/permstore"
	"github.com/inkipedia/wikimod/automod/profanity"
)

// Notification is one inbound message from the wiki-notifier feed.
type Notification struct {
	ChannelID string
	AuthorID  string
	JumpLink  string
	Embeds    []Embed
}

// Embed carries the notifier's formatted event text.
type Embed struct {
	Title       string
	Description string
}

// Notifier scores wiki-notifier events and builds the moderation-channel
// alert. Only messages from the configured notifier identity in the
// configured channel are considered; everything else is someone talking.
type Notifier struct {
	Logger    *slog.Logger
	Scorer    *profanity.Scorer
	Perms     *permstore.Service
	BotID     string // the notifier account's id
	ChannelID string // the wiki feed channel
}

// the notifier wraps the acting username in square brackets
var sourceUserRe = regexp.MustCompile(`\[([^\]]+)]`)

func (n *Notifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// HandleEvent returns the alert text for the moderation channel, or "" when
// the event is not ours, not suspicious, or malformed.
func (n *Notifier) HandleEvent(ctx context.Context, msg Notification) string {
	if msg.AuthorID != n.BotID || msg.ChannelID != n.ChannelID {
		return ""
	}
	if len(msg.Embeds) == 0 {
		n.logger().Warn("no embeds found in wiki notifier message")
		return ""
	}
	content := msg.Embeds[0].Title
	if content == "" {
		content = msg.Embeds[0].Description
	}
	if content == "" {
		return ""
	}
	if !n.Scorer.Relevant(content) {
		return ""
	}

	m := sourceUserRe.FindStringSubmatch(content)
	if m == nil {
		n.logger().Warn("no bracketed source user in notifier message")
		return ""
	}
	sourceUser := m[1]
	// insurance against odd symbols in the username: the underscore form the
	// notifier links with must also appear in the content
	underscored := strings.ReplaceAll(sourceUser, " ", "_")
	if !strings.Contains(content, underscored) {
		n.logger().Error("source user not present as a link", "user", sourceUser)
		return ""
	}

	report := n.Scorer.ScoreEvent(ctx, content, sourceUser, msg.JumpLink)
	if report == nil {
		return ""
	}
	alertCount.WithLabelValues(report.Tier.String()).Inc()
	return n.formatAlert(report)
}

func (n *Notifier) formatAlert(report *profanity.VandalismReport) string {
	var heading string
	switch report.Tier {
	case profanity.SeverityHigh:
		heading = "\U0001F6A8 Vandalism"
	case profanity.SeverityMedium:
		heading = "⚠ Probable vandalism"
	default:
		heading = "❓ Possible vandalism"
	}
	// matches are spoilered so the moderation channel doesn't echo slurs
	return fmt.Sprintf("%s, matched: ||[%s]|| %s %s",
		heading, strings.Join(report.MatchedPhrases, ", "), report.MessageLink, n.patrolPings())
}

// patrolPings mentions every patrol member, trailing space included so the
// alert body concatenates cleanly.
func (n *Notifier) patrolPings() string {
	var sb strings.Builder
	for _, id := range n.Perms.Patrol() {
		fmt.Fprintf(&sb, "<@!%s> ", id)
	}
	return sb.String()
}
