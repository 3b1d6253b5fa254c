package interwiki

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkipedia/wikimod/mediawiki"
)

func newBot(site *mediawiki.MockSite, peers map[string]mediawiki.Site) *Bot {
	return &Bot{
		Site:    site,
		Peers:   peers,
		Skip:    map[string]bool{"Main Page": true},
		BotUser: "WikimodBot",
		Pause:   time.Microsecond,
	}
}

func TestSyncAddsAndDropsLinks(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	site := mediawiki.NewMockSite()
	es := mediawiki.NewMockSite()
	fr := mediawiki.NewMockSite()

	// es has the page, fr does not; the stale fr link must go and the missing
	// es link must appear
	site.AddPage("Big Run", "a salmon run variant\n\n[[fr:Big Run]]\n")
	es.AddPage("Big Run", "una variante")

	bot := newBot(site, map[string]mediawiki.Site{"es": es, "fr": fr})
	res, err := bot.Sync(ctx, "Slate")
	require.NoError(t, err)
	assert.Equal(1, res.PagesScanned)
	assert.Equal(1, res.PagesChanged)
	assert.Zero(res.Failures)

	page, err := site.GetPage(ctx, "Big Run")
	require.NoError(t, err)
	assert.Contains(page.Text, "[[es:Big Run]]")
	assert.NotContains(page.Text, "[[fr:")

	// a second pass changes nothing
	res, err = bot.Sync(ctx, "Slate")
	require.NoError(t, err)
	assert.Zero(res.PagesChanged)
}

func TestSyncLeavesUnmanagedLanguagesAlone(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	site := mediawiki.NewMockSite()
	site.AddPage("Grand Festival", "the big one\n\n[[ja:グランドフェス]]\n")

	bot := newBot(site, map[string]mediawiki.Site{"es": mediawiki.NewMockSite()})
	res, err := bot.Sync(ctx, "Slate")
	require.NoError(t, err)
	assert.Zero(res.PagesChanged)

	page, err := site.GetPage(ctx, "Grand Festival")
	require.NoError(t, err)
	assert.Contains(page.Text, "[[ja:グランドフェス]]")
}

func TestSyncSkipsMainPage(t *testing.T) {
	ctx := context.Background()

	site := mediawiki.NewMockSite()
	es := mediawiki.NewMockSite()
	site.AddPage("Main Page", "welcome")
	es.AddPage("Main Page", "bienvenido")

	bot := newBot(site, map[string]mediawiki.Site{"es": es})
	res, err := bot.Sync(ctx, "Slate")
	require.NoError(t, err)
	assert.Zero(t, res.PagesScanned)
	assert.Zero(t, res.PagesChanged)
}

func TestParseAndReplaceLanguageLinks(t *testing.T) {
	assert := assert.New(t)

	links := parseLanguageLinks("body\n[[es:Página]]\n[[fr:Page]]\n")
	assert.Equal(map[string]string{"es": "Página", "fr": "Page"}, links)

	out := replaceLanguageLinks("body\n[[es:Página]]\n", map[string]string{"fr": "Page", "es": "Página"})
	assert.Equal("body\n\n[[es:Página]]\n[[fr:Page]]\n", out)

	// inline links that merely look like language links are not a link block
	links = parseLanguageLinks("see [[es:Página]] for details")
	assert.Empty(links)
}
