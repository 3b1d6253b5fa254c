package commands

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkipedia/wikimod/automod/engine"
	"github.com/inkipedia/wikimod/automod/interwiki"
	"github.com/inkipedia/wikimod/automod/permstore"
	"github.com/inkipedia/wikimod/automod/profanity"
	"github.com/inkipedia/wikimod/automod/rank"
	"github.com/inkipedia/wikimod/mediawiki"
)

// the fixture's role lists
var (
	owner   = Caller{ID: "1", Name: "Slate#0001"}
	admin   = Caller{ID: "2", Name: "Grate#0002"}
	editor  = Caller{ID: "3", Name: "Frye#0003"}
	nobody  = Caller{ID: "99", Name: "Drifter#0099"}
	patrols = []string{"4"}
)

// recorder collects everything the router replied
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) reply(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
	return nil
}

func (r *recorder) last(t *testing.T) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.lines)
	return r.lines[len(r.lines)-1]
}

func (r *recorder) all() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.lines, "\n")
}

func testRouter(t *testing.T) (*Router, *mediawiki.MockSite, *profanity.MemVandalStore) {
	t.Helper()
	store := permstore.NewMemStore()
	require.NoError(t, store.Append(context.Background(), &permstore.PermissionSet{
		Owner:  []string{owner.ID},
		Admin:  []string{admin.ID},
		Editor: []string{editor.ID},
		Patrol: patrols,
	}))
	perms := permstore.NewService(store, slog.Default())
	require.NoError(t, perms.Load(context.Background()))

	eng, site := engine.EngineTestFixture()
	vandals := profanity.NewMemVandalStore()
	return &Router{
		Logger:    slog.Default(),
		Perms:     perms,
		Engine:    eng,
		Ranker:    &rank.Ranker{Site: site, Pause: time.Microsecond},
		Interwiki: &interwiki.Bot{Site: site, BotUser: "WikimodBot", Pause: time.Microsecond},
		Vandals:   vandals,
		Site:      site,
	}, site, vandals
}

func TestDispatchIgnoresNonCommands(t *testing.T) {
	assert := assert.New(t)
	router, _, _ := testRouter(t)
	rec := &recorder{}

	assert.False(router.Dispatch(context.Background(), nobody, "hello there", rec.reply))
	assert.False(router.Dispatch(context.Background(), nobody, "!definitely_not_a_command", rec.reply))
	assert.Empty(rec.lines)
}

func TestMoveCategoryCommand(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	router, site, _ := testRouter(t)
	rec := &recorder{}

	// malformed input is a usage reply, not an error
	assert.True(router.Dispatch(ctx, editor, "!move_category Big_Run", rec.reply))
	assert.Contains(rec.last(t), "move_category <old> <new>")

	// permission denial
	assert.True(router.Dispatch(ctx, nobody, "!move_category Big_Run Big_Run_stages", rec.reply))
	assert.Equal("You don't have editor permission.", rec.last(t))

	site.AddPage("Category:Big Run", "cat page")
	site.AddPage("Wahoo World", "[[Category:Big Run]]")

	assert.True(router.Dispatch(ctx, editor, "!move_category Big_Run Big_Run_stages", rec.reply))
	assert.Contains(rec.all(), "Recategorising `Category:Big Run` to `Category:Big Run stages`")
	assert.Contains(rec.last(t), "1 page(s) changed")

	page, err := site.GetPage(ctx, "Wahoo World")
	require.NoError(t, err)
	assert.Contains(page.Text, "[[Category:Big Run stages]]")
}

func TestDeleteCategoryNeedsAdmin(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	router, site, _ := testRouter(t)
	rec := &recorder{}

	site.AddPage("Category:Old stuff", "cat page")
	assert.True(router.Dispatch(ctx, editor, "!delete_category Old_stuff", rec.reply))
	assert.Equal("You don't have admin permission.", rec.last(t))

	assert.True(router.Dispatch(ctx, admin, "!delete_category Old_stuff", rec.reply))
	assert.Contains(rec.last(t), "page(s) changed")
	assert.Contains(site.WriteLog, "delete:Category:Old stuff")
}

func TestAutoDeleteCommand(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	router, site, _ := testRouter(t)
	rec := &recorder{}

	site.AddPage("Category:Pages pending deletion", "maintenance listing")
	site.AddPage("Talk:Gone", "[[Category:Pages pending deletion]]")

	assert.True(router.Dispatch(ctx, nobody, "!auto_delete", rec.reply))
	assert.Equal("You don't have admin permission.", rec.last(t))

	assert.True(router.Dispatch(ctx, admin, "!auto_delete", rec.reply))
	assert.Contains(rec.all(), "Auto-deleting from Category:Pages pending deletion")
	assert.Contains(rec.last(t), "1 page(s) deleted")
	assert.Contains(site.WriteLog, "delete:Talk:Gone")

	// a category with no page is refused before any sweep starts
	writes := len(site.WriteLog)
	assert.True(router.Dispatch(ctx, admin, "!auto_delete No_such_category", rec.reply))
	assert.Equal("Error: the category does not exist.", rec.last(t))
	assert.Len(site.WriteLog, writes)
}

func TestGrantPatrolIsSelfService(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	router, _, _ := testRouter(t)
	rec := &recorder{}

	// anyone may join patrol
	assert.True(router.Dispatch(ctx, nobody, "!grant patrol", rec.reply))
	assert.Equal("Added 99 to patrol!", rec.last(t))
	assert.True(router.Perms.IsPatrol(nobody.ID))

	// but only an owner hands out admin
	assert.True(router.Dispatch(ctx, admin, "!grant admin <@!55>", rec.reply))
	assert.Equal("You don't have permission to do that.", rec.last(t))
	assert.False(router.Perms.IsAdmin("55"))

	assert.True(router.Dispatch(ctx, owner, "!grant admin <@!55>", rec.reply))
	assert.Equal("Added 55 to admin!", rec.last(t))
	assert.True(router.Perms.IsAdmin("55"))

	// double grant is reported, not repeated
	assert.True(router.Dispatch(ctx, owner, "!grant admin 55", rec.reply))
	assert.Contains(rec.last(t), "already has the role")
}

func TestDenyCommand(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	router, _, _ := testRouter(t)
	rec := &recorder{}

	// the last owner stays
	assert.True(router.Dispatch(ctx, owner, "!deny owner 1", rec.reply))
	assert.Contains(rec.last(t), "may not remove the only owner")
	assert.True(router.Perms.IsOwner(owner.ID))

	// bad role name
	assert.True(router.Dispatch(ctx, owner, "!deny wizard 2", rec.reply))
	assert.Contains(rec.last(t), "I don't know the role")

	assert.True(router.Dispatch(ctx, owner, "!deny admin 2", rec.reply))
	assert.Equal("Removed 2 from admin!", rec.last(t))
	assert.False(router.Perms.IsAdmin(admin.ID))
}

func TestFalseAndWhitelistCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	router, _, _ := testRouter(t)
	rec := &recorder{}

	patrol := Caller{ID: "4", Name: "Shiver#0004"}
	assert.True(router.Dispatch(ctx, patrol, "!false north dink", rec.reply))
	assert.Equal("Added north dink to false triggers!", rec.last(t))
	assert.Contains(router.Perms.FalseTriggers(), "north dink")

	assert.True(router.Dispatch(ctx, patrol, "!whitelist stringer", rec.reply))
	assert.Equal("Added stringer to whitelist!", rec.last(t))
	assert.Contains(router.Perms.Whitelist(), "stringer")

	assert.True(router.Dispatch(ctx, nobody, "!whitelist stringer", rec.reply))
	assert.Equal("You do not have permission to do this.", rec.last(t))
}

func TestNukeGate(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	router, site, vandals := testRouter(t)
	rec := &recorder{}
	now := time.Now()

	assert.True(router.Dispatch(ctx, admin, "!nuke Nobody Here", rec.reply))
	assert.Equal("User Nobody Here was not found.", rec.last(t))

	// established accounts are protected even from admins
	site.AddUser(mediawiki.UserInfo{Name: "Sheldon", Registered: true, Groups: []string{"*", "user", "sysop"}, FirstEdit: now})
	assert.True(router.Dispatch(ctx, admin, "!nuke Sheldon", rec.reply))
	assert.Contains(rec.last(t), "established rights")

	site.AddUser(mediawiki.UserInfo{Name: "Squidbagger", Registered: true, Groups: []string{"*", "user"}, FirstEdit: now.Add(-time.Hour)})
	site.AddPage("Spam", "junk")
	site.AddRevision("Spam", "Squidbagger", "junk", 4, now.Add(-time.Hour))
	site.AddContrib("Squidbagger", mediawiki.Contrib{PageTitle: "Spam", Timestamp: now.Add(-time.Hour), NewPage: true})

	// an editor may only nuke a fresh account that tripped detection
	assert.True(router.Dispatch(ctx, editor, "!nuke Squidbagger", rec.reply))
	assert.Contains(rec.last(t), "has not tripped the anti-vandalism detection")

	require.NoError(t, vandals.Add(ctx, "Squidbagger"))
	assert.True(router.Dispatch(ctx, editor, "!nuke Squidbagger", rec.reply))
	assert.Contains(rec.last(t), "1 page(s) deleted")
	assert.Contains(site.WriteLog, "block:Squidbagger")
	assert.Contains(site.WriteLog, "delete:Spam")

	// plain callers get nothing
	assert.True(router.Dispatch(ctx, nobody, "!nuke Squidbagger", rec.reply))
	assert.Equal("You don't have admin permission.", rec.last(t))
}

func TestNukeEditorNeedsFreshAccount(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	router, site, vandals := testRouter(t)
	rec := &recorder{}

	site.AddUser(mediawiki.UserInfo{
		Name:       "Old Vandal",
		Registered: true,
		Groups:     []string{"*", "user"},
		FirstEdit:  time.Now().Add(-72 * time.Hour),
	})
	require.NoError(t, vandals.Add(ctx, "Old Vandal"))

	assert.True(router.Dispatch(ctx, editor, "!nuke Old Vandal", rec.reply))
	assert.Contains(rec.last(t), "first contribution is more than a day old")
}

func TestIotmCommand(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	router, site, _ := testRouter(t)
	rec := &recorder{}

	site.AddContrib("Shiver", mediawiki.Contrib{PageTitle: "Big Run", Namespace: mediawiki.NamespaceMain, Timestamp: time.Now()})

	assert.True(router.Dispatch(ctx, editor, "!iotm", rec.reply))
	assert.Contains(rec.last(t), "Shiver")

	assert.True(router.Dispatch(ctx, editor, "!iotm zero", rec.reply))
	assert.Contains(rec.last(t), "iotm [days]")
}

func TestInterwikiCommand(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	router, site, _ := testRouter(t)
	rec := &recorder{}

	site.AddPage("Big Run", "a salmon run variant")

	assert.True(router.Dispatch(ctx, nobody, "!interwiki", rec.reply))
	assert.Equal("You don't have editor permission.", rec.last(t))

	assert.True(router.Dispatch(ctx, editor, "!interwiki", rec.reply))
	assert.Contains(rec.last(t), "1 page(s) scanned")
}

func TestRemoveConstructionCommand(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	router, site, _ := testRouter(t)
	rec := &recorder{}
	now := time.Now()

	text := "{{construction}}\nA finished article.\n[[Category:Articles under construction]]"
	site.AddPage("Grand Festival", text)
	site.AddRevision("Grand Festival", "Slate", text, 6200, now)

	assert.True(router.Dispatch(ctx, editor, "!remove_construction", rec.reply))
	assert.Contains(rec.last(t), "1 page(s) changed")
	assert.Contains(site.WriteLog, "save:Grand Festival")
}
