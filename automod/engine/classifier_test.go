package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classify(t *testing.T, eng *Engine, title string) PageClass {
	t.Helper()
	page, err := eng.Site.GetPage(context.Background(), title)
	require.NoError(t, err)
	class, err := eng.Classify(context.Background(), page)
	require.NoError(t, err)
	return class
}

func TestClassifyPriorityOrder(t *testing.T) {
	assert := assert.New(t)

	eng, site := EngineTestFixture()
	site.AddPage("Talk:Big Run", "{{delete|orphan}}")
	site.AddPage("Category:Old Weapons", "{{delete|merged}}")
	site.AddPage("User:Grate", "{{delete|leaving}}")
	site.AddPage("File:Old map.png", "#REDIRECT [[File:New map.png]]")
	site.AddPage("Old Name", "#REDIRECT [[Big Run]]")
	site.AddPage("Plain Article", "{{delete|no idea}} just text")

	assert.Equal(ClassTalkPage, classify(t, eng, "Talk:Big Run").Kind)
	assert.Equal(ClassCategory, classify(t, eng, "Category:Old Weapons").Kind)
	assert.Equal(ClassUserPage, classify(t, eng, "User:Grate").Kind)

	// a redirect in the File namespace classifies as a file page: namespace
	// checks outrank redirect detection
	assert.Equal(ClassFilePage, classify(t, eng, "File:Old map.png").Kind)

	class := classify(t, eng, "Old Name")
	assert.Equal(ClassRedirectLike, class.Kind)
	assert.Equal("Big Run", class.RedirectTarget)

	assert.Equal(ClassNone, classify(t, eng, "Plain Article").Kind)
}

func TestClassifyTalkNamespaces(t *testing.T) {
	assert := assert.New(t)

	eng, site := EngineTestFixture()
	site.AddPage("User talk:Grate", "old discussion")
	site.AddPage("File talk:Old map.png", "old discussion")

	// every talk namespace classifies as a talk page, including the ones
	// paired with namespaces checked later in the order
	assert.Equal(ClassTalkPage, classify(t, eng, "User talk:Grate").Kind)
	assert.Equal(ClassTalkPage, classify(t, eng, "File talk:Old map.png").Kind)
}
