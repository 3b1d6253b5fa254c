package rank

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkipedia/wikimod/mediawiki"
)

func TestEditorOfTheMonth(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	site := mediawiki.NewMockSite()
	ranker := &Ranker{Site: site, Pause: time.Microsecond}

	now := time.Now()
	since := now.Add(-30 * 24 * time.Hour)

	// Shiver: two mainspace edits plus a new article
	site.AddContrib("Shiver", mediawiki.Contrib{PageTitle: "Big Run", Namespace: mediawiki.NamespaceMain, Timestamp: now})
	site.AddContrib("Shiver", mediawiki.Contrib{PageTitle: "Grand Festival", Namespace: mediawiki.NamespaceMain, Timestamp: now, NewPage: true})

	// Frye: lots of user-talk chatter, worth little
	for i := 0; i < 5; i++ {
		site.AddContrib("Frye", mediawiki.Contrib{PageTitle: "User talk:Frye", Namespace: mediawiki.NamespaceUserTalk, Timestamp: now})
	}

	// Slate: edits from before the window do not count
	site.AddContrib("Slate", mediawiki.Contrib{PageTitle: "Old news", Namespace: mediawiki.NamespaceMain, Timestamp: since.Add(-time.Hour)})

	scores, err := ranker.EditorOfTheMonth(ctx, since)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	assert.Equal("Shiver", scores[0].User)
	assert.Equal(13, scores[0].Score) // 5 + (5 + new page bonus 3)
	assert.Equal(2, scores[0].Edits)

	assert.Equal("Frye", scores[1].User)
	assert.Equal(5, scores[1].Score) // user talk weighs 1 per edit
	assert.Equal(5, scores[1].Edits)
}

func TestEditorOfTheMonthCancel(t *testing.T) {
	site := mediawiki.NewMockSite()
	site.AddContrib("Shiver", mediawiki.Contrib{PageTitle: "Big Run", Namespace: mediawiki.NamespaceMain, Timestamp: time.Now()})
	ranker := &Ranker{Site: site, Pause: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ranker.EditorOfTheMonth(ctx, time.Time{})
	require.ErrorIs(t, err, context.Canceled)
}
