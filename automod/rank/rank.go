// Package rank computes "Editor of the Month" standings: a weighted score over
// every active user's contributions in a time window, favoring work on the
// wiki's actual content over chatter in talk and user space.
package rank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/inkipedia/wikimod/mediawiki"
)

// per-edit weight by namespace; anything unlisted scores 1
var namespaceWeights = map[mediawiki.Namespace]int{
	mediawiki.NamespaceMain:     5,
	mediawiki.NamespaceFile:     4,
	mediawiki.NamespaceTemplate: 4,
	mediawiki.NamespaceCategory: 3,
	mediawiki.NamespaceProject:  3,
	mediawiki.NamespaceHelp:     3,
	mediawiki.NamespaceUser:     1,
}

// creating a page is worth more than touching one
const newPageBonus = 3

// EditorScore is one user's standing for the window.
type EditorScore struct {
	User  string
	Score int
	Edits int
}

// Ranker walks contribution histories. Pause spaces the per-user reads so a
// full pass stays inside the remote read budget; zero means a small default.
type Ranker struct {
	Logger *slog.Logger
	Site   mediawiki.Site
	Pause  time.Duration
}

func (r *Ranker) pause() time.Duration {
	if r.Pause > 0 {
		return r.Pause
	}
	return 50 * time.Millisecond
}

// EditorOfTheMonth scores every active user's edits since the window start and
// returns standings sorted best first. Users with no edits in the window are
// omitted.
func (r *Ranker) EditorOfTheMonth(ctx context.Context, since time.Time) ([]EditorScore, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	users, err := r.Site.ActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerating active users: %w", err)
	}

	var out []EditorScore
	for _, user := range users {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pause()):
		}
		contribs, err := r.Site.UserContribs(ctx, user, since)
		if err != nil {
			logger.Error("failed to fetch contributions", "user", user, "err", err)
			continue
		}
		score := scoreContribs(contribs)
		if score.Edits == 0 {
			continue
		}
		score.User = user
		out = append(out, score)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Edits > out[j].Edits
	})
	return out, nil
}

func scoreContribs(contribs []mediawiki.Contrib) EditorScore {
	var s EditorScore
	for _, c := range contribs {
		// talk-page weight follows its subject namespace, at half
		ns := c.Namespace
		half := false
		if ns.IsTalk() {
			ns = ns.Subject()
			half = true
		}
		w, ok := namespaceWeights[ns]
		if !ok {
			w = 1
		}
		if half {
			w = (w + 1) / 2
		}
		if c.NewPage {
			w += newPageBonus
		}
		s.Score += w
		s.Edits++
	}
	return s
}
