package syncitems

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE sync_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sync_target INTEGER NOT NULL,
  sync_time INTEGER NOT NULL DEFAULT 0,
  item_type INTEGER NOT NULL,
  item_id TEXT NOT NULL,
  sync_disabled INTEGER NOT NULL DEFAULT 0,
  sync_disabled_reason TEXT NOT NULL DEFAULT '',
  UNIQUE (sync_target, item_id)
);`)
	require.NoError(t, err)
	return db
}

func TestUpsertAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, models.SyncItem{ItemType: models.TypeNote, ItemID: "a", SyncTarget: 1, SyncTime: 100}))
	require.NoError(t, r.Upsert(ctx, models.SyncItem{ItemType: models.TypeNote, ItemID: "a", SyncTarget: 1, SyncTime: 200}))

	s, err := r.Get(ctx, 1, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(200), s.SyncTime)
	assert.Equal(t, models.TypeNote, s.ItemType)
	assert.False(t, s.SyncDisabled)

	_, err = r.Get(ctx, 2, "a")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListDisabled(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, models.SyncItem{ItemType: models.TypeNote, ItemID: "a", SyncTarget: 1, SyncTime: 1}))
	require.NoError(t, r.Upsert(ctx, models.SyncItem{ItemType: models.TypeFolder, ItemID: "b", SyncTarget: 1, SyncDisabled: true, SyncDisabledReason: "too big"}))
	require.NoError(t, r.Upsert(ctx, models.SyncItem{ItemType: models.TypeFolder, ItemID: "c", SyncTarget: 2, SyncDisabled: true}))

	list, err := r.ListDisabled(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ItemID)
	assert.Equal(t, "too big", list[0].SyncDisabledReason)
}

func TestSyncedItemIDsAndCount(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, models.SyncItem{ItemType: models.TypeNote, ItemID: "a", SyncTarget: 1, SyncTime: 5}))
	require.NoError(t, r.Upsert(ctx, models.SyncItem{ItemType: models.TypeNote, ItemID: "b", SyncTarget: 1, SyncTime: 0, SyncDisabled: true}))
	require.NoError(t, r.Upsert(ctx, models.SyncItem{ItemType: models.TypeFolder, ItemID: "c", SyncTarget: 1, SyncTime: 7}))

	ids, err := r.SyncedItemIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids)

	n, err := r.Count(ctx, 1, models.TypeNote)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for _, target := range []int{1, 2} {
		require.NoError(t, r.Upsert(ctx, models.SyncItem{ItemType: models.TypeNote, ItemID: "a", SyncTarget: target, SyncTime: 1}))
		require.NoError(t, r.Upsert(ctx, models.SyncItem{ItemType: models.TypeNote, ItemID: "b", SyncTarget: target, SyncTime: 1}))
	}

	require.NoError(t, r.DeleteByItem(ctx, 1, "a"))
	_, err := r.Get(ctx, 1, "a")
	require.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.Get(ctx, 2, "a")
	require.NoError(t, err)

	require.NoError(t, r.DeleteAllForItems(ctx, []string{"a", "b"}))
	require.NoError(t, r.DeleteAllForItems(ctx, nil))
	n, err := r.Count(ctx, 2, models.TypeNote)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSyncItems_DBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())

	err := r.Upsert(context.Background(), models.SyncItem{ItemID: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert sync item")
}
