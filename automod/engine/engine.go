// Package engine is the auto-delete decision engine and the bulk wiki
// moderation operations built on it: classification of pages pending deletion,
// per-class delete/fix/defer policy, category rewrites, and user nuking.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/inkipedia/wikimod/mediawiki"
)

// runtime for sweeps and moderation actions against one wiki.
type Engine struct {
	Logger *slog.Logger
	Site   mediawiki.Site

	// bot account name, used in edit summaries
	BotUser string

	// backlinks from these pages (exact title or "Title/..." subpage) do not
	// count as "in use"; typically a maintenance project page that links
	// everything pending deletion
	BacklinkExclusions []string

	// pause between pages during sweeps, keeping the bot responsive and
	// under the remote write budget
	PagePause time.Duration
}

func (eng *Engine) logger() *slog.Logger {
	if eng.Logger != nil {
		return eng.Logger
	}
	return slog.Default()
}

func (eng *Engine) pagePause() time.Duration {
	if eng.PagePause > 0 {
		return eng.PagePause
	}
	return 100 * time.Millisecond
}

// yield sleeps briefly between pages, bailing out early on cancellation.
func (eng *Engine) yield(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(eng.pagePause()):
		return nil
	}
}

// summary builds the audit edit summary naming the bot and the human who
// authorized the operation.
func (eng *Engine) summary(authorizedBy, action string) string {
	return fmt.Sprintf("[[User:%s|Bot edit]] authorized by %s %s", eng.BotUser, authorizedBy, action)
}

// sweepPages enumerates a category's direct articles plus all recursive
// subcategories, the traversal order shared by every sweep operation.
func (eng *Engine) sweepPages(ctx context.Context, category string) ([]string, error) {
	category = mediawiki.NormalizeCategoryTitle(category)
	articles, err := eng.Site.CategoryArticles(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("enumerating articles of %q: %w", category, err)
	}
	subcats, err := eng.Site.Subcategories(ctx, category, true)
	if err != nil {
		return nil, fmt.Errorf("enumerating subcategories of %q: %w", category, err)
	}
	return append(articles, subcats...), nil
}

// isInUse reports whether any page links here, ignoring the configured
// exclusions.
func (eng *Engine) isInUse(ctx context.Context, title string) (bool, error) {
	backlinks, err := eng.Site.Backlinks(ctx, title, 25)
	if err != nil {
		return false, fmt.Errorf("fetching backlinks of %q: %w", title, err)
	}
	for _, bl := range backlinks {
		if !eng.isExcludedBacklink(bl) {
			return true, nil
		}
	}
	return false, nil
}

func (eng *Engine) isExcludedBacklink(title string) bool {
	for _, ex := range eng.BacklinkExclusions {
		if title == ex || strings.HasPrefix(title, ex+"/") {
			return true
		}
	}
	return false
}
