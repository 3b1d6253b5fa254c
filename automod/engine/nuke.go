package engine

import (
	"context"
	"fmt"
	"time"
)

const vandalismReason = "[[Project:Policy/Vandalism|Vandalism]]"

// NukeResult reports what a nuke actually did; individual page failures are
// counted, not fatal.
type NukeResult struct {
	Blocked        bool
	AlreadyBlocked bool
	PagesDeleted   int
	PagesReverted  int
	Failures       int
}

// NukeUser blocks a vandal and unwinds their contributions: pages they
// created are deleted, pages they merely edited last are rolled back.
// Permission gating happens at the command layer; this assumes the caller is
// authorized.
func (eng *Engine) NukeUser(ctx context.Context, username, authorizedBy string) (*NukeResult, error) {
	start := time.Now()
	defer func() {
		sweepDuration.WithLabelValues("nuke").Observe(time.Since(start).Seconds())
	}()

	logger := eng.logger().With("op", "nuke", "user", username)
	reason := eng.summary(authorizedBy, ": "+vandalismReason)
	res := &NukeResult{}

	info, err := eng.Site.UserInfo(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("looking up user %q: %w", username, err)
	}
	if info == nil {
		return nil, fmt.Errorf("user %q was not found", username)
	}

	if info.Blocked {
		res.AlreadyBlocked = true
		logger.Info("user already blocked, skipping block step")
	} else {
		if err := eng.Site.BlockUser(ctx, username, reason, "never"); err != nil {
			return nil, fmt.Errorf("blocking %q: %w", username, err)
		}
		res.Blocked = true
	}

	contribs, err := eng.Site.UserContribs(ctx, username, time.Time{})
	if err != nil {
		return res, fmt.Errorf("fetching contributions of %q: %w", username, err)
	}

	seen := map[string]bool{}
	for _, contrib := range contribs {
		if seen[contrib.PageTitle] {
			continue
		}
		seen[contrib.PageTitle] = true
		if err := eng.yield(ctx); err != nil {
			return res, err
		}

		page, err := eng.Site.GetPage(ctx, contrib.PageTitle)
		if err != nil || !page.Exists {
			continue
		}
		first, err := eng.Site.FirstRevision(ctx, contrib.PageTitle)
		if err != nil || first == nil {
			logger.Error("failed to read history", "page", contrib.PageTitle, "err", err)
			res.Failures++
			continue
		}
		if first.User == username {
			// the vandal created this page
			deleted, err := eng.Site.DeletePage(ctx, contrib.PageTitle, reason)
			if err != nil || !deleted {
				logger.Error("failed to delete page", "page", contrib.PageTitle, "err", err)
				res.Failures++
				continue
			}
			res.PagesDeleted++
		} else {
			// rollback fails remotely if the top edits are not the vandal's
			if err := eng.Site.RollbackPage(ctx, contrib.PageTitle, username, reason); err != nil {
				logger.Error("failed to roll back page", "page", contrib.PageTitle, "err", err)
				res.Failures++
				continue
			}
			res.PagesReverted++
		}
	}
	logger.Info("nuke finished", "deleted", res.PagesDeleted, "reverted", res.PagesReverted, "failures", res.Failures)
	return res, nil
}
