package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophnotes/internal/client/migrations"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/registry"
	"github.com/dmitrijs2005/gophnotes/internal/logging"

	_ "modernc.org/sqlite"
)

// testEnv wires every service over a fresh database, the same way the
// engine does.
type testEnv struct {
	db        *sql.DB
	reg       *registry.Registry
	tracker   SyncTracker
	items     ItemService
	keys      MasterKeyService
	enc       EncryptionService
	resources ResourceStore
	log       logging.Logger
}

func newTestEnv(t *testing.T, targets ...int) *testEnv {
	t.Helper()
	return newTestEnvAt(t, filepath.Join(t.TempDir(), "notes.db"), filepath.Join(t.TempDir(), "resources"), targets...)
}

func newTestEnvAt(t *testing.T, dsn, resourceDir string, targets ...int) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))

	reg, err := registry.Default()
	require.NoError(t, err)

	log := logging.Nop()
	e := &testEnv{db: db, reg: reg, log: log}
	e.tracker = NewSyncTracker(db, reg, targets, log)
	e.items = NewItemService(db, reg, e.tracker, log)
	e.keys = NewMasterKeyService(db, e.items, log)
	e.enc = NewEncryptionService(db, reg, e.items, e.keys, log)
	e.resources = NewResourceStore(db, resourceDir, e.items, e.enc, log)
	return e
}

func (e *testEnv) saveNote(t *testing.T, title, body, parent string) *models.Note {
	t.Helper()
	n := &models.Note{BaseItem: models.BaseItem{Title: title}, Body: body, ParentID: parent}
	_, err := e.items.Save(context.Background(), n, SaveOptions{})
	require.NoError(t, err)
	return n
}

func (e *testEnv) saveFolder(t *testing.T, title, parent string) *models.Folder {
	t.Helper()
	f := &models.Folder{BaseItem: models.BaseItem{Title: title}, ParentID: parent}
	_, err := e.items.Save(context.Background(), f, SaveOptions{})
	require.NoError(t, err)
	return f
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(query, args...).Scan(&n))
	return n
}
