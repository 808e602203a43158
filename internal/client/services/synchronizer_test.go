package services

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/synctarget"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

const targetID = 1

// testClock advances 10ms per reading so that edits and syncs never share a
// timestamp.
type testClock struct{ ms atomic.Int64 }

func newTestClock() *testClock {
	c := &testClock{}
	c.ms.Store(1_700_000_000_000)
	return c
}

func (c *testClock) now() time.Time { return time.UnixMilli(c.ms.Add(10)) }

func newSyncEnv(t *testing.T, clock *testClock) (*testEnv, *Synchronizer) {
	t.Helper()
	e := newTestEnv(t, targetID)
	e.items.(*itemService).now = clock.now
	s := NewSynchronizer(e.db, e.reg, e.items, e.tracker, e.enc, e.keys, e.resources, e.log)
	s.now = clock.now
	return e, s
}

func syncOK(t *testing.T, s *Synchronizer, tg synctarget.Target) *SyncReport {
	t.Helper()
	r, err := s.Sync(context.Background(), targetID, tg)
	require.NoError(t, err)
	require.Empty(t, r.Warnings)
	return r
}

func noteBody(t *testing.T, e *testEnv, id string) string {
	t.Helper()
	it, err := e.items.Load(context.Background(), models.TypeNote, id)
	require.NoError(t, err)
	return it.(*models.Note).Body
}

func TestSynchronizer_UploadThenDownload(t *testing.T) {
	clock := newTestClock()
	a, syncA := newSyncEnv(t, clock)
	b, syncB := newSyncEnv(t, clock)
	ctx := context.Background()

	tg, err := synctarget.NewFilesystem(t.TempDir())
	require.NoError(t, err)

	f := a.saveFolder(t, "Work", "")
	n := a.saveNote(t, "Plan", "step one", f.ID)
	n, err = a.resources.AttachFileToNote(ctx, n, writeFile(t, "chart.png", pngHeader), -1)
	require.NoError(t, err)
	rid := models.LinkedItemIDs(n.Body)[0]

	r := syncOK(t, syncA, tg)
	assert.Equal(t, 3, r.Uploaded)

	paths, err := tg.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		models.SystemPath(f.ID), models.SystemPath(n.ID), models.SystemPath(rid), "resources/" + rid,
	}, paths)

	r = syncOK(t, syncA, tg)
	assert.Equal(t, 0, r.Uploaded, "nothing changed since the last pass")

	last, err := syncA.LastSync(ctx, targetID)
	require.NoError(t, err)
	assert.NotZero(t, last)
	times, err := syncA.LastSyncTimes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]int64{targetID: last}, times)

	r = syncOK(t, syncB, tg)
	assert.Equal(t, 3, r.Downloaded)
	assert.Equal(t, 0, r.Uploaded)
	assert.Equal(t, "step one\n\n![chart.png](:/"+rid+")", noteBody(t, b, n.ID))

	res, err := b.items.Load(ctx, models.TypeResource, rid)
	require.NoError(t, err)
	data, err := b.resources.Read(ctx, res.(*models.Resource))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	r = syncOK(t, syncB, tg)
	assert.Equal(t, 0, r.Uploaded+r.Downloaded+r.Updated, "downloaded items are not echoed back")
}

func TestSynchronizer_RemoteUpdateAndDelete(t *testing.T) {
	clock := newTestClock()
	a, syncA := newSyncEnv(t, clock)
	b, syncB := newSyncEnv(t, clock)
	ctx := context.Background()
	tg := synctarget.NewMemory()

	n := a.saveNote(t, "n", "v1", "")
	syncOK(t, syncA, tg)
	syncOK(t, syncB, tg)

	n.Body = "v2"
	_, err := a.items.Save(ctx, n, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, syncOK(t, syncA, tg).Uploaded)

	r := syncOK(t, syncB, tg)
	assert.Equal(t, 1, r.Updated)
	assert.Equal(t, "v2", noteBody(t, b, n.ID))

	require.NoError(t, a.items.Delete(ctx, models.TypeNote, []string{n.ID}, DeleteOptions{}))
	r = syncOK(t, syncA, tg)
	assert.Equal(t, 1, r.RemoteDeleted)
	pending, err := a.tracker.TombstoneCount(ctx, targetID)
	require.NoError(t, err)
	assert.Equal(t, 0, pending, "applied tombstones are drained")
	_, err = tg.Get(ctx, models.SystemPath(n.ID))
	assert.ErrorIs(t, err, synctarget.ErrNotFound)

	r = syncOK(t, syncB, tg)
	assert.Equal(t, 1, r.LocalDeleted)
	_, err = b.items.LoadAny(ctx, n.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	pending, err = b.tracker.TombstoneCount(ctx, targetID)
	require.NoError(t, err)
	assert.Equal(t, 0, pending, "deletes coming from the target are not tracked")
}

func TestSynchronizer_OfflineEditReachesLateDownloader(t *testing.T) {
	clock := newTestClock()
	a, syncA := newSyncEnv(t, clock)
	b, syncB := newSyncEnv(t, clock)
	ctx := context.Background()
	tg := synctarget.NewMemory()

	n := a.saveNote(t, "n", "v1", "")
	syncOK(t, syncA, tg)

	// a edits offline, b downloads v1 after that edit happened
	n.Body = "v2"
	_, err := a.items.Save(ctx, n, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, syncOK(t, syncB, tg).Downloaded)
	assert.Equal(t, "v1", noteBody(t, b, n.ID))

	assert.Equal(t, 1, syncOK(t, syncA, tg).Uploaded)

	r := syncOK(t, syncB, tg)
	assert.Equal(t, 1, r.Updated)
	assert.Equal(t, "v2", noteBody(t, b, n.ID))

	st, err := b.tracker.SyncTime(ctx, models.TypeNote, n.ID, targetID)
	require.NoError(t, err)
	assert.Equal(t, n.UpdatedTime, st, "the sync time is the item's updated_time")
}

func TestSynchronizer_ConflictKeepsLocalCopy(t *testing.T) {
	clock := newTestClock()
	a, syncA := newSyncEnv(t, clock)
	b, syncB := newSyncEnv(t, clock)
	ctx := context.Background()
	tg := synctarget.NewMemory()

	n := a.saveNote(t, "shared", "base", "")
	syncOK(t, syncA, tg)
	syncOK(t, syncB, tg)

	n.Body = "from a"
	_, err := a.items.Save(ctx, n, SaveOptions{})
	require.NoError(t, err)

	bn, err := b.items.Load(ctx, models.TypeNote, n.ID)
	require.NoError(t, err)
	bn.(*models.Note).Body = "from b"
	_, err = b.items.Save(ctx, bn, SaveOptions{})
	require.NoError(t, err)

	syncOK(t, syncA, tg)
	r := syncOK(t, syncB, tg)
	assert.Equal(t, 1, r.Conflicts)
	assert.Equal(t, 0, r.Uploaded)

	assert.Equal(t, "from a", noteBody(t, b, n.ID))
	notes, err := b.items.List(ctx, models.TypeNote)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	for _, it := range notes {
		cn := it.(*models.Note)
		if cn.ID != n.ID {
			assert.True(t, cn.IsConflict)
			assert.Equal(t, "from b", cn.Body)
		}
	}

	// conflict notes stay local
	syncOK(t, syncB, tg)
	paths, err := tg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestSynchronizer_RejectedItemsAreDisabled(t *testing.T) {
	clock := newTestClock()
	a, syncA := newSyncEnv(t, clock)
	ctx := context.Background()
	tg := synctarget.NewMemory()
	tg.MaxSize = 4096

	big := a.saveNote(t, "big", strings.Repeat("x", 10_000), "")
	a.saveNote(t, "small", "ok", "")

	r, err := syncA.Sync(ctx, targetID, tg)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Uploaded)
	assert.Equal(t, 1, r.Disabled)

	disabled, err := a.tracker.ListDisabled(ctx, targetID)
	require.NoError(t, err)
	require.Len(t, disabled, 1)
	assert.Equal(t, big.ID, disabled[0].Item.Base().ID)
	assert.Contains(t, disabled[0].SyncDisabledReason, "rejected")

	r = syncOK(t, syncA, tg)
	assert.Equal(t, 0, r.Disabled, "disabled items are not retried")
	_, err = a.items.Load(ctx, models.TypeNote, big.ID)
	assert.NoError(t, err, "a rejected item is never deleted locally")
}

func TestSynchronizer_EncryptedRoundTrip(t *testing.T) {
	clock := newTestClock()
	a, syncA := newSyncEnv(t, clock)
	b, syncB := newSyncEnv(t, clock)
	ctx := context.Background()
	tg := synctarget.NewMemory()

	mk, err := a.keys.Generate(ctx, testPassword)
	require.NoError(t, err)
	n := a.saveNote(t, "secret title", "secret body", "")
	n, err = a.resources.AttachFileToNote(ctx, n, writeFile(t, "pic.png", pngHeader), -1)
	require.NoError(t, err)
	rid := models.LinkedItemIDs(n.Body)[0]

	assert.Equal(t, 3, syncOK(t, syncA, tg).Uploaded)

	raw, err := tg.Get(ctx, models.SystemPath(n.ID))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	blob, err := tg.Get(ctx, "resources/"+rid)
	require.NoError(t, err)
	assert.NotEqual(t, pngHeader, blob)

	assert.Equal(t, 3, syncOK(t, syncB, tg).Downloaded)
	st, err := b.enc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, EncryptionStats{Encrypted: 2, Total: 2}, st)

	require.NoError(t, b.keys.Load(ctx, mk.ID, testPassword))
	report, err := NewDecryptionWorker(b.enc, b.resources, 1, b.log).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 2, report.Decrypted)

	got, err := b.items.Load(ctx, models.TypeNote, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret title", got.Base().Title)
	assert.Equal(t, n.Body, got.(*models.Note).Body)
	assert.Equal(t, n.UpdatedTime, got.Base().UpdatedTime)

	res, err := b.items.Load(ctx, models.TypeResource, rid)
	require.NoError(t, err)
	assert.False(t, res.(*models.Resource).EncryptionBlobEncrypted)
	data, err := b.resources.Read(ctx, res.(*models.Resource))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	r := syncOK(t, syncB, tg)
	assert.Equal(t, 0, r.Uploaded, "decryption keeps updated_time so nothing is re-uploaded")
}

func TestSynchronizer_ActiveKeyMustBeLoaded(t *testing.T) {
	clock := newTestClock()
	a, syncA := newSyncEnv(t, clock)
	ctx := context.Background()

	_, err := a.keys.Generate(ctx, testPassword)
	require.NoError(t, err)
	a.keys.Unload()

	_, err = syncA.Sync(ctx, targetID, synctarget.NewMemory())
	assert.ErrorIs(t, err, common.ErrMasterKeyNotLoaded)
}
