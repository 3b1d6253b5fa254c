package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/inkipedia/wikimod/mediawiki"
)

// RedirectMarker is the wikitext redirect prefix, scanned for in page text.
const RedirectMarker = "#REDIRECT [["

// how much of a page's text is scanned for the marker
const redirectScanWindow = 1024

// ResolveRedirectTarget determines whether page is, or textually resembles, a
// redirect, and returns the target title. Returns "" when the page is
// definitely not a redirect.
//
// A structural redirect resolves directly. Otherwise the current text is
// scanned for the marker, and failing that the immediately preceding
// revision's text is scanned too; that handles pages whose redirect marker was
// just replaced by a deletion-request template. Exactly one revision of
// history is consulted, a deliberate bound on API calls that callers depend
// on.
func (eng *Engine) ResolveRedirectTarget(ctx context.Context, page *mediawiki.Page) (string, error) {
	if page.IsRedirect && page.RedirectTarget != "" {
		return page.RedirectTarget, nil
	}

	if target := scanForRedirect(page.Text); target != "" {
		return target, nil
	}

	revs, err := eng.Site.Revisions(ctx, page.Title, 2)
	if err != nil {
		return "", fmt.Errorf("fetching history of %q: %w", page.Title, err)
	}
	// revs[0] is the current revision; only its immediate parent is checked
	if len(revs) >= 2 {
		if target := scanForRedirect(revs[1].Text); target != "" {
			return target, nil
		}
	}
	return "", nil
}

// scanForRedirect extracts the redirect target from the leading window of
// text. The target is whatever sits between the marker and the closing "]]",
// with a leading colon or space trimmed off to normalize namespace-escaped
// links like [[:Category:Foo]].
func scanForRedirect(text string) string {
	window := text
	if len(window) > redirectScanWindow {
		window = window[:redirectScanWindow]
	}
	idx := strings.Index(window, RedirectMarker)
	if idx < 0 {
		return ""
	}
	// the target may extend past the scan window; slice from the full text
	rest := text[idx+len(RedirectMarker):]
	end := strings.Index(rest, "]]")
	if end < 0 {
		return ""
	}
	return strings.TrimLeft(rest[:end], ": ")
}
