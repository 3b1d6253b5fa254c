package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/inkipedia/wikimod/mediawiki"
)

var (
	// freeform reason inside a {{delete|...}} request template
	deleteTemplateRe = regexp.MustCompile(`(?is)\{\{\s*delete\s*\|(.*?)\}\}`)

	// reason wordings that amount to "the author wants their own upload gone"
	authorRequestRe = regexp.MustCompile(`(?i)\b(unneeded|unused|no longer (?:used|needed)|author req|user image)`)

	// reason wordings that claim the file duplicates another
	duplicateRe = regexp.MustCompile(`(?i)\b(dupe?|duplicate|same as)\b`)

	// an embedded file link naming the duplicate target
	fileLinkRe = regexp.MustCompile(`(?i)\[\[:?\s*(File:[^\]|#]+)`)

	// the review markers AnnotateDeferral inserts into the template
	annotationMarkerRe = regexp.MustCompile(`(?i)\s*\{\{clarify\|[^{}]*\}\}|\s*\{\{Delete/CannotAutoDelete\}\}`)
)

// Decide applies the per-class deletion policy to one classified page. It
// performs reads only; applying the verdict (delete, fix, annotate) is the
// sweep's job.
func (eng *Engine) Decide(ctx context.Context, page *mediawiki.Page, class PageClass) (Verdict, error) {
	switch class.Kind {
	case ClassTalkPage:
		return eng.decideTalkPage(ctx, page)
	case ClassCategory:
		return eng.decideCategory(ctx, page)
	case ClassUserPage:
		return eng.decideUserPage(ctx, page)
	case ClassFilePage:
		return eng.decideFilePage(ctx, page)
	case ClassRedirectLike:
		return eng.decideRedirect(ctx, page, class.RedirectTarget)
	default:
		return Defer("no applicable rule", false), nil
	}
}

// a talk page is deletable when its contents page is gone, or lingers only as
// a redirect
func (eng *Engine) decideTalkPage(ctx context.Context, page *mediawiki.Page) (Verdict, error) {
	contentTitle := mediawiki.TogglePage(page.Title)
	content, err := eng.Site.GetPage(ctx, contentTitle)
	if err != nil {
		return Verdict{}, fmt.Errorf("fetching contents page %q: %w", contentTitle, err)
	}
	if !content.Exists || content.IsRedirect {
		return Delete("orphaned talk page"), nil
	}
	return Defer("contents page in use", false), nil
}

func (eng *Engine) decideCategory(ctx context.Context, page *mediawiki.Page) (Verdict, error) {
	articles, err := eng.Site.CategoryArticles(ctx, page.Title)
	if err != nil {
		return Verdict{}, fmt.Errorf("enumerating %q: %w", page.Title, err)
	}
	subcats, err := eng.Site.Subcategories(ctx, page.Title, true)
	if err != nil {
		return Verdict{}, fmt.Errorf("enumerating %q: %w", page.Title, err)
	}
	if len(articles) == 0 && len(subcats) == 0 {
		return Delete("empty category"), nil
	}
	return Defer("has subpages", false), nil
}

func (eng *Engine) decideUserPage(ctx context.Context, page *mediawiki.Page) (Verdict, error) {
	inUse, err := eng.isInUse(ctx, page.Title)
	if err != nil {
		return Verdict{}, err
	}
	if inUse {
		return Defer("in use", false), nil
	}
	oldest, newest, err := eng.boundingRevisions(ctx, page.Title)
	if err != nil {
		return Verdict{}, err
	}
	if oldest.User == newest.User {
		return Delete("author request"), nil
	}
	return Defer("someone other than the author requested deletion", true), nil
}

func (eng *Engine) decideFilePage(ctx context.Context, page *mediawiki.Page) (Verdict, error) {
	inUse, err := eng.isInUse(ctx, page.Title)
	if err != nil {
		return Verdict{}, err
	}
	if inUse {
		return Defer("in use", false), nil
	}
	oldest, newest, err := eng.boundingRevisions(ctx, page.Title)
	if err != nil {
		return Verdict{}, err
	}
	if oldest.User != newest.User {
		// the deletion request came from someone other than the uploader;
		// ambiguous, a human decides
		return Defer("editor other than the author requested deletion", true), nil
	}

	reason := deleteRequestReason(page.Text)
	switch {
	case reason == "" || authorRequestRe.MatchString(reason):
		return Delete("author request"), nil
	case duplicateRe.MatchString(reason):
		dupe := embeddedFileLink(reason)
		if dupe == "" {
			return Defer("duplicate claimed but no target named", true), nil
		}
		target, err := eng.Site.GetPage(ctx, dupe)
		if err != nil {
			return Verdict{}, fmt.Errorf("fetching dupe target %q: %w", dupe, err)
		}
		if !target.Exists {
			return Defer(fmt.Sprintf("claimed duplicate of missing %s", dupe), true), nil
		}
		return Delete("duplicate targeting " + dupe), nil
	default:
		return Defer("unrecognized deletion reason", true), nil
	}
}

func (eng *Engine) decideRedirect(ctx context.Context, page *mediawiki.Page, targetTitle string) (Verdict, error) {
	target, err := eng.Site.GetPage(ctx, targetTitle)
	if err != nil {
		return Verdict{}, fmt.Errorf("fetching redirect target %q: %w", targetTitle, err)
	}
	if !target.Exists {
		return Delete("broken redirect targeting " + targetTitle), nil
	}
	if target.IsRedirect {
		// double redirect
		final := target.RedirectTarget
		if final == page.Title {
			return Delete("circular redirect via " + targetTitle), nil
		}
		return FixRedirect(final, "fixing double redirect to "+final), nil
	}
	inUse, err := eng.isInUse(ctx, page.Title)
	if err != nil {
		return Verdict{}, err
	}
	if inUse {
		return Defer("in use", false), nil
	}
	return Delete("unused or superseded redirect targeting " + targetTitle), nil
}

// boundingRevisions fetches the true first and the latest revision of a page.
// The first revision must come from a dedicated read: the oldest entry of a
// truncated history window is not the page creator once the history outgrows
// the window.
func (eng *Engine) boundingRevisions(ctx context.Context, title string) (oldest, newest mediawiki.Revision, err error) {
	first, err := eng.Site.FirstRevision(ctx, title)
	if err != nil {
		return oldest, newest, fmt.Errorf("fetching first revision of %q: %w", title, err)
	}
	revs, err := eng.Site.Revisions(ctx, title, 1)
	if err != nil {
		return oldest, newest, fmt.Errorf("fetching history of %q: %w", title, err)
	}
	if first == nil || len(revs) == 0 {
		return oldest, newest, fmt.Errorf("page %q has no revisions", title)
	}
	return *first, revs[0], nil
}

// deleteRequestReason extracts the freeform reason from the page's
// {{delete|...}} template, stripped of annotation markers a previous pass may
// have added.
func deleteRequestReason(text string) string {
	m := deleteTemplateRe.FindStringSubmatch(annotationMarkerRe.ReplaceAllString(text, ""))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func embeddedFileLink(reason string) string {
	m := fileLinkRe.FindStringSubmatch(reason)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
