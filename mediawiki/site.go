package mediawiki

import (
	"context"
	"time"
)

// Site is the collaborator surface the moderation engine runs against. The
// HTTP client implements it for a live wiki; tests use the in-memory MockSite.
//
// Write operations (save, delete, move, block, rollback) are expected to be
// rate limited by the implementation, not by callers.
type Site interface {
	// GetPage fetches a page snapshot. A missing page is returned with
	// Exists=false, not an error.
	GetPage(ctx context.Context, title string) (*Page, error)

	// Revisions returns up to limit revisions with content, newest first.
	Revisions(ctx context.Context, title string, limit int) ([]Revision, error)

	// FirstRevision returns the page's very first revision, or nil when the
	// page has no recorded history. History queries page newest-first, so the
	// oldest entry of a truncated Revisions read is not the first revision.
	FirstRevision(ctx context.Context, title string) (*Revision, error)

	// Backlinks returns titles of up to limit pages linking to the page.
	Backlinks(ctx context.Context, title string, limit int) ([]string, error)

	SavePage(ctx context.Context, title, text, summary string) error

	// DeletePage reports whether the page was actually deleted. A rejected
	// deletion may surface as (false, nil) or as an error; callers treat both
	// as a failed delete.
	DeletePage(ctx context.Context, title, reason string) (bool, error)

	MovePage(ctx context.Context, oldTitle, newTitle, reason string) error

	// SetRedirectTarget overwrites the page with a redirect to target.
	SetRedirectTarget(ctx context.Context, title, target, summary string) error

	// CategoryArticles returns the direct member pages of a category
	// (anything that is not itself a subcategory).
	CategoryArticles(ctx context.Context, category string) ([]string, error)

	// Subcategories enumerates subcategory titles, recursively when recurse
	// is set.
	Subcategories(ctx context.Context, category string, recurse bool) ([]string, error)

	// UserInfo returns nil for an unregistered account name.
	UserInfo(ctx context.Context, username string) (*UserInfo, error)

	BlockUser(ctx context.Context, username, reason, expiry string) error

	// RollbackPage reverts the page's most recent edits if (and only if) they
	// were made by the given user; the API rejects it otherwise.
	RollbackPage(ctx context.Context, title, user, summary string) error

	UserContribs(ctx context.Context, username string, since time.Time) ([]Contrib, error)

	// ActiveUsers lists accounts with recent edit activity.
	ActiveUsers(ctx context.Context) ([]string, error)

	// AllPages lists page titles in a namespace, redirects excluded.
	AllPages(ctx context.Context, ns Namespace) ([]string, error)
}
