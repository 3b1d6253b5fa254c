package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStructuralRedirect(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, site := EngineTestFixture()
	site.AddPage("Old Name", "#REDIRECT [[Big Run]]")

	page, err := site.GetPage(ctx, "Old Name")
	require.NoError(err)
	target, err := eng.ResolveRedirectTarget(ctx, page)
	require.NoError(err)
	assert.Equal("Big Run", target)
}

func TestResolveMarkerInCurrentText(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, site := EngineTestFixture()
	// a delete template ahead of the marker means the page is not a
	// structural redirect, but the marker is still in the leading window
	site.AddPage("Old Name", "{{delete|unused}}\n#REDIRECT [[:Category:Weapons]]")

	page, err := site.GetPage(ctx, "Old Name")
	require.NoError(err)
	assert.False(page.IsRedirect)
	target, err := eng.ResolveRedirectTarget(ctx, page)
	require.NoError(err)
	assert.Equal("Category:Weapons", target)
}

func TestResolveMarkerBeyondWindow(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, site := EngineTestFixture()
	site.AddPage("Long Page", strings.Repeat("x", 2000)+"\n#REDIRECT [[Big Run]]")

	page, err := site.GetPage(ctx, "Long Page")
	require.NoError(err)
	target, err := eng.ResolveRedirectTarget(ctx, page)
	require.NoError(err)
	assert.Equal("", target)
}

func TestResolveDepthOneHistory(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	now := time.Now()

	eng, site := EngineTestFixture()

	// current text has no marker, but the immediate parent revision does:
	// a redirect whose marker was just replaced by a delete request
	site.AddPage("Old Name", "{{delete|broken}}")
	site.AddRevision("Old Name", "Slate", "#REDIRECT [[Big Run]]", 24, now.Add(-time.Hour))
	site.AddRevision("Old Name", "Grate", "{{delete|broken}}", 17, now)

	page, err := site.GetPage(ctx, "Old Name")
	require.NoError(err)
	target, err := eng.ResolveRedirectTarget(ctx, page)
	require.NoError(err)
	assert.Equal("Big Run", target)

	// a grandparent-only marker is out of reach: the bound is one revision
	site.AddPage("Older Name", "{{delete|broken}}")
	site.AddRevision("Older Name", "Slate", "#REDIRECT [[Big Run]]", 24, now.Add(-2*time.Hour))
	site.AddRevision("Older Name", "Grate", "some article text", 90, now.Add(-time.Hour))
	site.AddRevision("Older Name", "Grate", "{{delete|broken}}", 17, now)

	page, err = site.GetPage(ctx, "Older Name")
	require.NoError(err)
	target, err = eng.ResolveRedirectTarget(ctx, page)
	require.NoError(err)
	assert.Equal("", target)
}
