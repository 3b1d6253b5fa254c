package permstore

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainment(t *testing.T) {
	assert := assert.New(t)

	p := &PermissionSet{
		Owner: []string{"100"},
		Admin: []string{"200"},
	}

	// editor list is empty, but admins and owners are editors
	assert.True(p.IsEditor("100"))
	assert.True(p.IsEditor("200"))
	assert.True(p.IsAdmin("100"))
	assert.False(p.IsAdmin("300"))
	assert.False(p.IsEditor("300"))

	// patrol is independent both ways
	p.Patrol = []string{"300"}
	assert.True(p.IsPatrol("300"))
	assert.False(p.IsPatrol("100"))
	assert.False(p.IsEditor("300"))
}

func TestGrantDeny(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	p := &PermissionSet{Owner: []string{"100"}}

	changed, err := p.Grant(RoleEditor, "300")
	require.NoError(err)
	assert.True(changed)

	changed, err = p.Grant(RoleEditor, "300")
	require.NoError(err)
	assert.False(changed)

	changed, err = p.Deny(RoleEditor, "300")
	require.NoError(err)
	assert.True(changed)
	assert.False(p.HasRole(RoleEditor, "300"))
}

func TestLastOwnerGuard(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	p := &PermissionSet{Owner: []string{"100"}}

	_, err := p.Deny(RoleOwner, "100")
	assert.ErrorIs(err, ErrLastOwner)
	assert.Equal([]string{"100"}, p.Owner)

	// with a second owner the removal goes through
	_, err = p.Grant(RoleOwner, "101")
	require.NoError(err)
	changed, err := p.Deny(RoleOwner, "100")
	require.NoError(err)
	assert.True(changed)
	assert.Equal([]string{"101"}, p.Owner)
}

func TestFileStoreLastEntryWins(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := NewFileStore(filepath.Join(t.TempDir(), "permissions.jsonl"))

	_, err := store.Load(ctx)
	assert.ErrorIs(err, ErrEmpty)

	require.NoError(store.Append(ctx, &PermissionSet{Owner: []string{"100"}}))
	require.NoError(store.Append(ctx, &PermissionSet{Owner: []string{"100"}, Editor: []string{"300"}}))

	p, err := store.Load(ctx)
	require.NoError(err)
	assert.Equal([]string{"300"}, p.Editor)
}

type failingStore struct {
	*MemStore
	failAppend bool
}

func (s *failingStore) Append(ctx context.Context, p *PermissionSet) error {
	if s.failAppend {
		return errors.New("channel down")
	}
	return s.MemStore.Append(ctx, p)
}

func TestServicePersistBeforeVisible(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := &failingStore{MemStore: NewMemStore()}
	require.NoError(store.Append(ctx, &PermissionSet{Owner: []string{"100"}}))

	svc := NewService(store, slog.Default())
	require.NoError(svc.Load(ctx))
	assert.True(svc.IsOwner("100"))

	store.failAppend = true
	_, err := svc.Grant(ctx, RoleAdmin, "200")
	assert.Error(err)
	assert.False(svc.IsAdmin("200"))

	store.failAppend = false
	changed, err := svc.Grant(ctx, RoleAdmin, "200")
	require.NoError(err)
	assert.True(changed)
	assert.True(svc.IsAdmin("200"))
	// mutation appended a new snapshot to the log
	assert.Len(store.Log, 2)
}

func TestServiceWordLists(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := NewMemStore()
	require.NoError(store.Append(ctx, &PermissionSet{Owner: []string{"100"}}))
	svc := NewService(store, slog.Default())
	require.NoError(svc.Load(ctx))

	changed, err := svc.AddFalseTrigger(ctx, "button")
	require.NoError(err)
	assert.True(changed)
	changed, err = svc.AddFalseTrigger(ctx, "button")
	require.NoError(err)
	assert.False(changed)
	assert.Equal([]string{"button"}, svc.FalseTriggers())

	changed, err = svc.AddWhitelist(ctx, "stringer")
	require.NoError(err)
	assert.True(changed)
	assert.Equal([]string{"stringer"}, svc.Whitelist())
}
