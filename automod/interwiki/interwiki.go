// Package interwiki reconciles the language links of mainspace pages against
// peer-language wikis: links to pages a peer no longer has are dropped, and
// links to same-titled pages a peer does have are added.
package interwiki

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/inkipedia/wikimod/mediawiki"
)

// Bot runs the sync pass. Peers maps a language code ("es", "fr") to that
// wiki's client. Skip holds titles never to touch, typically the main page.
type Bot struct {
	Logger *slog.Logger
	Site   mediawiki.Site
	Peers  map[string]mediawiki.Site
	Skip   map[string]bool

	// bot account name, used in edit summaries
	BotUser string

	// pause between pages; zero means a small default
	Pause time.Duration
}

// Result counts what a sync pass did.
type Result struct {
	PagesScanned int
	PagesChanged int
	Failures     int
}

var languageLinkRe = regexp.MustCompile(`(?m)^\[\[([a-z]{2,3}(?:-[a-z]+)?):([^\]]+)\]\]\s*$`)

func (b *Bot) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *Bot) pause() time.Duration {
	if b.Pause > 0 {
		return b.Pause
	}
	return 100 * time.Millisecond
}

// Sync walks every non-redirect mainspace page and reconciles its language
// links, saving only pages whose link block actually changed. Individual page
// failures are counted and skipped.
func (b *Bot) Sync(ctx context.Context, authorizedBy string) (*Result, error) {
	logger := b.logger().With("op", "interwiki")
	summary := fmt.Sprintf("[[User:%s|Bot edit]] authorized by %s interwiki update", b.BotUser, authorizedBy)

	titles, err := b.Site.AllPages(ctx, mediawiki.NamespaceMain)
	if err != nil {
		return nil, fmt.Errorf("enumerating mainspace pages: %w", err)
	}

	res := &Result{}
	for _, title := range titles {
		if b.Skip[title] {
			continue
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(b.pause()):
		}
		res.PagesScanned++

		changed, err := b.syncPage(ctx, title, summary)
		if err != nil {
			logger.Error("failed to sync page", "page", title, "err", err)
			res.Failures++
			continue
		}
		if changed {
			res.PagesChanged++
		}
	}
	logger.Info("interwiki sync finished", "scanned", res.PagesScanned, "changed", res.PagesChanged, "failures", res.Failures)
	return res, nil
}

func (b *Bot) syncPage(ctx context.Context, title, summary string) (bool, error) {
	page, err := b.Site.GetPage(ctx, title)
	if err != nil {
		return false, err
	}
	if !page.Exists || page.IsRedirect {
		return false, nil
	}

	links := parseLanguageLinks(page.Text)
	want := map[string]string{}

	// keep links whose target still exists on the peer
	for lang, target := range links {
		peer, ok := b.Peers[lang]
		if !ok {
			// not a peer we manage; leave it alone
			want[lang] = target
			continue
		}
		remote, err := peer.GetPage(ctx, target)
		if err != nil {
			return false, fmt.Errorf("checking %s:%s: %w", lang, target, err)
		}
		if remote.Exists {
			want[lang] = target
		}
	}

	// add peers that carry a same-titled page we do not link yet
	for lang, peer := range b.Peers {
		if _, ok := want[lang]; ok {
			continue
		}
		remote, err := peer.GetPage(ctx, title)
		if err != nil {
			return false, fmt.Errorf("checking %s:%s: %w", lang, title, err)
		}
		if remote.Exists && !remote.IsRedirect {
			want[lang] = title
		}
	}

	if maps.Equal(links, want) {
		return false, nil
	}
	text := replaceLanguageLinks(page.Text, want)
	if text == page.Text {
		return false, nil
	}
	if err := b.Site.SavePage(ctx, title, text, summary); err != nil {
		return false, err
	}
	return true, nil
}

func parseLanguageLinks(text string) map[string]string {
	out := map[string]string{}
	for _, m := range languageLinkRe.FindAllStringSubmatch(text, -1) {
		out[m[1]] = strings.TrimSpace(m[2])
	}
	return out
}

// replaceLanguageLinks strips the existing link block and appends the desired
// one, sorted by language code so reruns are stable.
func replaceLanguageLinks(text string, links map[string]string) string {
	body := strings.TrimRight(languageLinkRe.ReplaceAllString(text, ""), "\n")
	if len(links) == 0 {
		return body + "\n"
	}
	langs := make([]string, 0, len(links))
	for lang := range links {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	var sb strings.Builder
	sb.WriteString(body)
	sb.WriteString("\n\n")
	for _, lang := range langs {
		fmt.Fprintf(&sb, "[[%s:%s]]\n", lang, links[lang])
	}
	return sb.String()
}
