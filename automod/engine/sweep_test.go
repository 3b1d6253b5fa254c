package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pendingCategory = "Category:Pages pending deletion"

func TestSweepDeletesOrphanTalkPage(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, site := EngineTestFixture()

	site.AddPage("Talk:Ancient Splatfest", "{{delete|content page gone}}\n[["+pendingCategory+"]]")
	// content page "Ancient Splatfest" does not exist

	count, err := eng.RunAutoDelete(ctx, pendingCategory, "Slate")
	require.NoError(t, err)
	assert.Equal(1, count)
	assert.Equal([]string{"delete:Talk:Ancient Splatfest"}, site.WriteLog)

	page, err := site.GetPage(ctx, "Talk:Ancient Splatfest")
	require.NoError(t, err)
	assert.False(page.Exists)
}

func TestSweepFixesDoubleRedirect(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, site := EngineTestFixture()

	site.AddPage("Old Arc", "#REDIRECT [[Mid Arc]]\n[["+pendingCategory+"]]")
	site.AddPage("Mid Arc", "#REDIRECT [[Final Arc]]")
	site.AddPage("Final Arc", "the real page")

	count, err := eng.RunAutoDelete(ctx, pendingCategory, "Slate")
	require.NoError(t, err)
	assert.Zero(count, "a redirect fix is not a deletion")
	assert.Equal([]string{"save:Old Arc"}, site.WriteLog)

	page, err := site.GetPage(ctx, "Old Arc")
	require.NoError(t, err)
	assert.True(page.IsRedirect)
	assert.Equal("Final Arc", page.RedirectTarget)
}

func TestSweepAnnotationIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, site := EngineTestFixture()

	// a user page tagged by someone other than its author gets flagged for
	// human review rather than deleted
	now := time.Now()
	site.AddPage("User:Grate", "{{delete|old account}}\n[["+pendingCategory+"]]")
	site.AddRevision("User:Grate", "Grate", "my page", 7, now.Add(-48*time.Hour))
	site.AddRevision("User:Grate", "Frye", "{{delete|old account}}", 20, now)

	count, err := eng.RunAutoDelete(ctx, pendingCategory, "Slate")
	require.NoError(t, err)
	assert.Zero(count)
	assert.Equal([]string{"save:User:Grate"}, site.WriteLog)

	page, err := site.GetPage(ctx, "User:Grate")
	require.NoError(t, err)
	assert.True(AlreadyAnnotated(page.Text))

	// second pass over the same category writes nothing
	count, err = eng.RunAutoDelete(ctx, pendingCategory, "Slate")
	require.NoError(t, err)
	assert.Zero(count)
	assert.Equal([]string{"save:User:Grate"}, site.WriteLog)
}

func TestSweepSurvivesPageFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, site := EngineTestFixture()

	site.AddPage("Talk:First", "[["+pendingCategory+"]]")
	site.AddPage("Talk:Second", "[["+pendingCategory+"]]")
	site.FailDeletes["Talk:First"] = true

	count, err := eng.RunAutoDelete(ctx, pendingCategory, "Slate")
	require.NoError(t, err)
	assert.Equal(1, count)
	assert.Equal([]string{"delete:Talk:Second"}, site.WriteLog)
}

func TestSweepDescendsIntoSubcategories(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, site := EngineTestFixture()

	// an empty subcategory counts as a pending page in its own right
	site.AddPage("Category:Old images pending deletion", "[["+pendingCategory+"]]")
	// a nonempty one is left alone
	site.AddPage("Category:Maps pending deletion", "[["+pendingCategory+"]]")
	site.AddPage("Scorch Gorge", "[[Category:Maps pending deletion]]")

	count, err := eng.RunAutoDelete(ctx, pendingCategory, "Slate")
	require.NoError(t, err)
	assert.Equal(1, count)
	assert.Equal([]string{"delete:Category:Old images pending deletion"}, site.WriteLog)
}
