package metadata

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	require.NoError(t, err)
	return db
}

func TestGetSetDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	v, err := r.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))
	v, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)

	require.NoError(t, r.Delete(ctx, "k"))
	require.NoError(t, r.Delete(ctx, "k"), "deleting a missing key is not an error")
	v, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSet_NilStoresEmpty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "empty", nil))
	s, err := GetString(ctx, r, "empty")
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestList_Prefix(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "sync.lastSyncTime.1", []byte("10")))
	require.NoError(t, r.Set(ctx, "sync.lastSyncTime.2", []byte("20")))
	require.NoError(t, r.Set(ctx, "encryption.activeMasterKeyId", []byte("abc")))

	m, err := r.List(ctx, "sync.")
	require.NoError(t, err)
	assert.Len(t, m, 2)

	all, err := r.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ints, err := ListInts(ctx, r, "sync.lastSyncTime.")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"1": 10, "2": 20}, ints)

	_, err = ListInts(ctx, r, "encryption.")
	assert.Error(t, err)
}

func TestIntAndString(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	ms, err := GetInt(ctx, r, "sync.lastSyncTime.1")
	require.NoError(t, err)
	assert.Zero(t, ms)

	require.NoError(t, SetInt(ctx, r, "sync.lastSyncTime.1", 1_700_000_000_123))
	ms, err = GetInt(ctx, r, "sync.lastSyncTime.1")
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000_123), ms)

	require.NoError(t, SetString(ctx, r, "bad", "x"))
	_, err = GetInt(ctx, r, "bad")
	assert.Error(t, err)

	s, err := GetString(ctx, r, "bad")
	require.NoError(t, err)
	assert.Equal(t, "x", s)
}

func TestErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM metadata`).WithArgs("k").WillReturnError(boom)
	_, err = r.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, `read setting "k"`)

	mock.ExpectExec(`INSERT INTO metadata`).WithArgs("k", []byte("v")).WillReturnError(boom)
	assert.ErrorIs(t, r.Set(ctx, "k", []byte("v")), boom)

	mock.ExpectExec(`DELETE FROM metadata`).WithArgs("k").WillReturnError(boom)
	assert.ErrorIs(t, r.Delete(ctx, "k"), boom)

	mock.ExpectQuery(`SELECT key, value FROM metadata`).WithArgs(int64(2), "k.").WillReturnError(boom)
	_, err = r.List(ctx, "k.")
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
