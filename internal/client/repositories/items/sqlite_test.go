package items

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophnotes/internal/client/migrations"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/registry"
	"github.com/dmitrijs2005/gophnotes/internal/common"

	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T) (*SQLiteRepository, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "items.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))

	reg, err := registry.Default()
	require.NoError(t, err)
	return NewSQLiteRepository(db, reg), db
}

func note(id, title string) *models.Note {
	return &models.Note{BaseItem: models.BaseItem{ID: id, Title: title, CreatedTime: 10, UpdatedTime: 20}, Body: "body of " + title}
}

func TestInsertGet_AllVariants(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	in := []models.Item{
		&models.Note{BaseItem: models.BaseItem{ID: common.NewID(), Title: "n", UpdatedTime: 5}, Body: "b", IsTodo: true, TodoCompleted: 7},
		&models.Folder{BaseItem: models.BaseItem{ID: common.NewID(), Title: "f"}, ParentID: "p"},
		&models.Resource{BaseItem: models.BaseItem{ID: common.NewID(), Title: "r", EncryptionApplied: true, EncryptionCipherText: "x"}, Mime: "image/png", FileExtension: "png", EncryptionBlobEncrypted: true},
		&models.MasterKey{BaseItem: models.BaseItem{ID: common.NewID(), CreatedTime: 3}, EncryptionMethod: 1, Content: "c"},
	}

	for _, it := range in {
		require.NoError(t, r.Insert(ctx, it))
		got, err := r.Get(ctx, it.Type(), it.Base().ID)
		require.NoError(t, err)
		assert.Equal(t, it, got)

		found, err := r.Find(ctx, it.Base().ID)
		require.NoError(t, err)
		assert.Equal(t, it.Type(), found.Type())
	}
}

func TestInsert_DuplicateFails(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	n := note(common.NewID(), "a")
	require.NoError(t, r.Insert(ctx, n))
	require.Error(t, r.Insert(ctx, n))
}

func TestGet_NotFound(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	_, err := r.Get(ctx, models.TypeNote, "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = r.Find(ctx, "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = r.Get(ctx, models.ItemType(3), "x")
	require.ErrorIs(t, err, common.ErrUnknownType)
}

func TestUpdate(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	n := note(common.NewID(), "a")
	require.NoError(t, r.Insert(ctx, n))

	n.Title = "changed"
	n.IsConflict = true
	require.NoError(t, r.Update(ctx, n))

	got, err := r.Get(ctx, models.TypeNote, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Base().Title)
	assert.True(t, got.(*models.Note).IsConflict)

	err = r.Update(ctx, note(common.NewID(), "ghost"))
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListDeleteCount(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	ids := []string{common.NewID(), common.NewID(), common.NewID()}
	for _, id := range ids {
		require.NoError(t, r.Insert(ctx, note(id, id)))
	}

	list, err := r.List(ctx, models.TypeNote)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	n, err := r.Delete(ctx, models.TypeNote, ids[:2])
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	c, err := r.Count(ctx, models.TypeNote)
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	n, err = r.Delete(ctx, models.TypeNote, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEncryptedCountAndNeedDecryption(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	var encrypted []string
	for i := 0; i < 3; i++ {
		n := note(common.NewID(), "enc")
		n.EncryptionApplied = true
		n.EncryptionCipherText = "cipher"
		require.NoError(t, r.Insert(ctx, n))
		encrypted = append(encrypted, n.ID)
	}
	require.NoError(t, r.Insert(ctx, note(common.NewID(), "plain")))

	c, err := r.EncryptedCount(ctx, models.TypeNote)
	require.NoError(t, err)
	assert.Equal(t, 3, c)

	got, err := r.NeedDecryption(ctx, models.TypeNote, []string{encrypted[0]}, 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, it := range got {
		assert.NotEqual(t, encrypted[0], it.Base().ID)
	}

	got, err = r.NeedDecryption(ctx, models.TypeNote, nil, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// a resource whose blob alone is encrypted still needs work
	res := &models.Resource{BaseItem: models.BaseItem{ID: common.NewID()}, EncryptionBlobEncrypted: true}
	require.NoError(t, r.Insert(ctx, res))
	got, err = r.NeedDecryption(ctx, models.TypeResource, nil, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, res.ID, got[0].Base().ID)

	c, err = r.EncryptedCount(ctx, models.TypeMasterKey)
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestNeedSync(t *testing.T) {
	r, db := setupRepo(t)
	ctx := context.Background()

	synced := note(common.NewID(), "synced")
	changed := note(common.NewID(), "changed")
	fresh := note(common.NewID(), "fresh")
	disabled := note(common.NewID(), "disabled")
	for _, n := range []*models.Note{synced, changed, fresh, disabled} {
		require.NoError(t, r.Insert(ctx, n))
	}

	_, err := db.Exec(`INSERT INTO sync_items (sync_target, sync_time, item_type, item_id, sync_disabled) VALUES
		(1, 20, 1, ?, 0), (1, 5, 1, ?, 0), (1, 0, 1, ?, 1)`, synced.ID, changed.ID, disabled.ID)
	require.NoError(t, err)

	got, err := r.NeedSync(ctx, models.TypeNote, 1, 100)
	require.NoError(t, err)
	var ids []string
	for _, it := range got {
		ids = append(ids, it.Base().ID)
	}
	assert.ElementsMatch(t, []string{changed.ID, fresh.ID}, ids)

	got, err = r.NeedSync(ctx, models.TypeNote, 2, 100)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestTitleExistsAndConflicts(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	f := &models.Folder{BaseItem: models.BaseItem{ID: common.NewID(), Title: "Imported"}}
	require.NoError(t, r.Insert(ctx, f))

	ok, err := r.TitleExists(ctx, models.TypeFolder, "Imported")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.TitleExists(ctx, models.TypeFolder, "Other")
	require.NoError(t, err)
	assert.False(t, ok)

	c := note(common.NewID(), "conflict")
	c.IsConflict = true
	p := note(common.NewID(), "plain")
	require.NoError(t, r.Insert(ctx, c))
	require.NoError(t, r.Insert(ctx, p))

	ids, err := r.ConflictNoteIDs(ctx, []string{c.ID, p.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, ids)

	ids, err = r.ConflictNoteIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRepo_DBErrorWrapped(t *testing.T) {
	r, db := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, db.Close())

	err := r.Insert(ctx, note(common.NewID(), "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert note")

	_, err = r.List(ctx, models.TypeFolder)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to select folders")
}
