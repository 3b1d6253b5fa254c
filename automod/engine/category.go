package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/inkipedia/wikimod/mediawiki"
)

// categoryLinkRe matches the membership link for one category, preserving any
// sort key.
func categoryLinkRe(category string) *regexp.Regexp {
	_, name := mediawiki.ParseTitle(category)
	// either space or underscore form appears in the wild
	namePat := strings.ReplaceAll(regexp.QuoteMeta(name), ` `, `[ _]`)
	return regexp.MustCompile(`(?i)\[\[\s*Category\s*:\s*` + namePat + `\s*(\|[^\]]*)?\]\]`)
}

// ChangeCategory rewrites text's membership of oldCat. With newCat empty the
// membership link is removed outright. Reports whether anything changed.
func ChangeCategory(text, oldCat, newCat string) (string, bool) {
	re := categoryLinkRe(oldCat)
	if !re.MatchString(text) {
		return text, false
	}
	if newCat == "" {
		out := re.ReplaceAllString(text, "")
		return strings.ReplaceAll(out, "\n\n\n", "\n\n"), true
	}
	_, newName := mediawiki.ParseTitle(mediawiki.NormalizeCategoryTitle(newCat))
	// a literal $ in the name must not read as a capture reference
	escaped := strings.ReplaceAll(newName, "$", "$$")
	return re.ReplaceAllString(text, "[[Category:"+escaped+"${1}]]"), true
}

// MoveCategory renames a category: the category page itself is moved when
// that is cleanly possible, then every member article and recursive
// subcategory is recategorized. Returns the number of member pages changed.
func (eng *Engine) MoveCategory(ctx context.Context, oldCat, newCat, authorizedBy string) (int, []string, error) {
	start := time.Now()
	defer func() {
		sweepDuration.WithLabelValues("move_category").Observe(time.Since(start).Seconds())
	}()

	oldCat = mediawiki.NormalizeCategoryTitle(oldCat)
	newCat = mediawiki.NormalizeCategoryTitle(newCat)
	logger := eng.logger().With("op", "move_category", "old", oldCat, "new", newCat)
	action := fmt.Sprintf("Recategorising `%s` to `%s`", oldCat, newCat)
	summary := eng.summary(authorizedBy, action)

	var warnings []string
	oldPage, err := eng.Site.GetPage(ctx, oldCat)
	if err != nil {
		return 0, nil, err
	}
	newPage, err := eng.Site.GetPage(ctx, newCat)
	if err != nil {
		return 0, nil, err
	}
	switch {
	case newPage.Exists:
		warnings = append(warnings, "new category already exists, skipping category page move")
	case !oldPage.Exists:
		warnings = append(warnings, "old category page does not exist, skipping category page move")
	default:
		if err := eng.Site.MovePage(ctx, oldCat, newCat, summary); err != nil {
			return 0, warnings, fmt.Errorf("moving category page: %w", err)
		}
	}

	count, err := eng.rewriteMembers(ctx, oldCat, newCat, summary, logger)
	return count, warnings, err
}

// DeleteCategory removes a category and strips the membership link from every
// member. Returns the number of member pages changed.
func (eng *Engine) DeleteCategory(ctx context.Context, category, authorizedBy string) (int, []string, error) {
	start := time.Now()
	defer func() {
		sweepDuration.WithLabelValues("delete_category").Observe(time.Since(start).Seconds())
	}()

	category = mediawiki.NormalizeCategoryTitle(category)
	logger := eng.logger().With("op", "delete_category", "category", category)
	summary := eng.summary(authorizedBy, fmt.Sprintf("Removing `%s`", category))

	var warnings []string
	catPage, err := eng.Site.GetPage(ctx, category)
	if err != nil {
		return 0, nil, err
	}
	if !catPage.Exists {
		warnings = append(warnings, "the category page does not exist")
	} else {
		deleted, err := eng.Site.DeletePage(ctx, category, summary)
		if err != nil || !deleted {
			logger.Error("failed to delete category page", "err", err)
			warnings = append(warnings, "failed to delete the category page")
		}
	}

	count, err := eng.rewriteMembers(ctx, category, "", summary, logger)
	return count, warnings, err
}

// rewriteMembers applies a category rewrite (or removal) to every member
// article and recursive subcategory, one page per pause tick.
func (eng *Engine) rewriteMembers(ctx context.Context, oldCat, newCat, summary string, logger *slog.Logger) (int, error) {
	titles, err := eng.sweepPages(ctx, oldCat)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, title := range titles {
		if err := eng.yield(ctx); err != nil {
			return count, err
		}
		page, err := eng.Site.GetPage(ctx, title)
		if err != nil || !page.Exists {
			continue
		}
		text, changed := ChangeCategory(page.Text, oldCat, newCat)
		if !changed {
			logger.Info("page had no membership link to rewrite", "page", title)
			continue
		}
		if err := eng.Site.SavePage(ctx, title, text, summary); err != nil {
			logger.Error("failed to recategorize page", "page", title, "err", err)
			continue
		}
		categoryEditCount.WithLabelValues("rewrite").Inc()
		count++
	}
	return count, nil
}

var constructionRe = regexp.MustCompile(`(?i)\{\{construction\}\}`)

// pages at or above this size are considered built out enough to lose the
// notice
const constructionSizeThreshold = 4000

// RemoveConstruction strips the under-construction notice from pages in the
// category that have grown past the size threshold.
func (eng *Engine) RemoveConstruction(ctx context.Context, category, authorizedBy string) (int, error) {
	start := time.Now()
	defer func() {
		sweepDuration.WithLabelValues("remove_construction").Observe(time.Since(start).Seconds())
	}()

	category = mediawiki.NormalizeCategoryTitle(category)
	logger := eng.logger().With("op", "remove_construction", "category", category)
	summary := eng.summary(authorizedBy, fmt.Sprintf("Removing construction notice from articles larger than %d bytes", constructionSizeThreshold))

	titles, err := eng.sweepPages(ctx, category)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, title := range titles {
		if err := eng.yield(ctx); err != nil {
			return count, err
		}
		revs, err := eng.Site.Revisions(ctx, title, 1)
		if err != nil || len(revs) == 0 {
			logger.Error("failed to read latest revision", "page", title, "err", err)
			continue
		}
		if revs[0].Size < constructionSizeThreshold {
			continue
		}
		text := constructionRe.ReplaceAllString(revs[0].Text, "")
		if text == revs[0].Text {
			continue
		}
		if err := eng.Site.SavePage(ctx, title, text, summary); err != nil {
			logger.Error("failed to save page", "page", title, "err", err)
			continue
		}
		categoryEditCount.WithLabelValues("construction").Inc()
		count++
	}
	return count, nil
}
