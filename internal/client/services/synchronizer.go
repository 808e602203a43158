package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/registry"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/items"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophnotes/internal/client/serializer"
	"github.com/dmitrijs2005/gophnotes/internal/client/synctarget"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// noLimit disables the LIMIT clause of repository queries.
const noLimit = -1

// LastSyncKey is the metadata key holding the time of the last completed
// pass against target.
func LastSyncKey(target int) string {
	return common.MetadataLastSyncPrefix + strconv.Itoa(target)
}

func remoteBlobPath(id string) string {
	return resourcesDirName + "/" + id
}

type SyncReport struct {
	Target int

	// RemoteDeleted counts tombstones applied to the target.
	RemoteDeleted int
	Uploaded      int
	Downloaded    int
	Updated       int
	Conflicts     int
	LocalDeleted  int
	Disabled      int

	Warnings []string
}

func (r *SyncReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Synchronizer runs sync passes between the local store and one target.
//
// A pass is: apply pending tombstones remotely and drain them, upload local
// changes, then reconcile the remote listing with local state. When both
// sides changed a note, the local version is kept as a conflict note and the
// remote one wins.
type Synchronizer struct {
	db        *sql.DB
	reg       *registry.Registry
	ser       *serializer.Serializer
	items     ItemService
	tracker   SyncTracker
	enc       EncryptionService
	keys      MasterKeyService
	resources ResourceStore
	log       logging.Logger
	now       func() time.Time
}

func NewSynchronizer(db *sql.DB, reg *registry.Registry, items ItemService, tracker SyncTracker,
	enc EncryptionService, keys MasterKeyService, resources ResourceStore, log logging.Logger) *Synchronizer {
	return &Synchronizer{
		db:        db,
		reg:       reg,
		ser:       serializer.New(reg),
		items:     items,
		tracker:   tracker,
		enc:       enc,
		keys:      keys,
		resources: resources,
		log:       log,
		now:       time.Now,
	}
}

// syncPass holds the state of one Sync call.
type syncPass struct {
	*Synchronizer
	target  int
	tg      synctarget.Target
	encrypt bool
	report  *SyncReport

	// remote holds the ids of items present on the target.
	remote map[string]struct{}
	// handled ids are not looked at again during reconciliation.
	handled map[string]struct{}
}

// Sync runs one pass against target. Per-item failures end up in
// SyncReport.Warnings; the returned error is reserved for failures that
// make the pass meaningless, such as an unreachable target.
func (s *Synchronizer) Sync(ctx context.Context, target int, tg synctarget.Target) (*SyncReport, error) {
	activeKey, err := s.keys.ActiveID(ctx)
	if err != nil {
		return nil, err
	}
	if activeKey != "" {
		if _, err := s.keys.Key(activeKey); err != nil {
			return nil, fmt.Errorf("encryption is enabled but master key %s is not loaded: %w", activeKey, err)
		}
	}

	paths, err := tg.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list target %d: %w", target, err)
	}

	p := &syncPass{
		Synchronizer: s,
		target:       target,
		tg:           tg,
		encrypt:      activeKey != "",
		report:       &SyncReport{Target: target},
		remote:       make(map[string]struct{}),
		handled:      make(map[string]struct{}),
	}
	for _, path := range paths {
		if models.IsSystemPath(path) {
			p.remote[models.PathToID(path)] = struct{}{}
		}
	}

	s.log.Info(ctx, "sync started", "target", target, "remote_items", len(p.remote), "encrypt", p.encrypt)

	if err := p.applyTombstones(ctx); err != nil {
		return p.report, err
	}
	if err := p.upload(ctx); err != nil {
		return p.report, err
	}
	if err := p.reconcile(ctx); err != nil {
		return p.report, err
	}

	meta := metadata.NewSQLiteRepository(s.db)
	if err := metadata.SetInt(ctx, meta, LastSyncKey(target), s.now().UnixMilli()); err != nil {
		return p.report, err
	}

	r := p.report
	s.log.Info(ctx, "sync finished", "target", target,
		"uploaded", r.Uploaded, "downloaded", r.Downloaded, "updated", r.Updated,
		"conflicts", r.Conflicts, "remote_deleted", r.RemoteDeleted, "local_deleted", r.LocalDeleted,
		"warnings", len(r.Warnings))
	return r, nil
}

// LastSync returns the time of the last completed pass, zero if none.
func (s *Synchronizer) LastSync(ctx context.Context, target int) (int64, error) {
	return metadata.GetInt(ctx, metadata.NewSQLiteRepository(s.db), LastSyncKey(target))
}

// LastSyncTimes returns the last pass time of every target ever synced,
// including targets no longer configured.
func (s *Synchronizer) LastSyncTimes(ctx context.Context) (map[int]int64, error) {
	raw, err := metadata.ListInts(ctx, metadata.NewSQLiteRepository(s.db), common.MetadataLastSyncPrefix)
	if err != nil {
		return nil, err
	}
	out := make(map[int]int64, len(raw))
	for k, ms := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[id] = ms
	}
	return out, nil
}

func (p *syncPass) applyTombstones(ctx context.Context) error {
	pending, err := p.tracker.PendingTombstones(ctx, p.target)
	if err != nil {
		return err
	}
	for _, d := range pending {
		p.handled[d.ItemID] = struct{}{}
		if err := p.tg.Delete(ctx, models.SystemPath(d.ItemID)); err != nil {
			p.report.warn("delete %s %s on target: %v", d.ItemType, d.ItemID, err)
			continue
		}
		if d.ItemType == models.TypeResource {
			if err := p.tg.Delete(ctx, remoteBlobPath(d.ItemID)); err != nil {
				p.report.warn("delete blob of %s on target: %v", d.ItemID, err)
				continue
			}
		}
		if err := p.tracker.Drain(ctx, p.target, d.ItemID); err != nil {
			return err
		}
		delete(p.remote, d.ItemID)
		p.report.RemoteDeleted++
	}
	return nil
}

func (p *syncPass) fetch(ctx context.Context, id string) (models.Item, error) {
	b, err := p.tg.Get(ctx, models.SystemPath(id))
	if err != nil {
		return nil, err
	}
	return p.ser.Deserialize(string(b))
}

func (p *syncPass) upload(ctx context.Context) error {
	repo := items.NewSQLiteRepository(p.db, p.reg)
	for _, t := range p.reg.Types() {
		changed, err := repo.NeedSync(ctx, t, p.target, noLimit)
		if err != nil {
			return err
		}
		for _, it := range changed {
			id := it.Base().ID
			if n, ok := it.(*models.Note); ok && n.IsConflict {
				continue
			}
			if _, done := p.handled[id]; done {
				continue
			}
			p.handled[id] = struct{}{}

			if err := p.uploadOne(ctx, it); err != nil {
				p.log.Warn(ctx, "item not synced", "type", t.String(), "id", id, "error", err)
				p.report.warn("%s %s: %v", t, id, err)
			}
		}
	}
	return nil
}

func (p *syncPass) uploadOne(ctx context.Context, it models.Item) error {
	id := it.Base().ID

	if _, ok := p.remote[id]; ok {
		resolved, err := p.resolveRemoteChange(ctx, it)
		if err != nil || resolved {
			return err
		}
	}

	wire := it
	if p.encrypt {
		var err error
		if wire, err = p.enc.EncryptItem(ctx, it); err != nil {
			return err
		}
	}

	if r, ok := it.(*models.Resource); ok {
		blobEncrypted, err := p.uploadBlob(ctx, r)
		if err != nil {
			return p.rejectOr(ctx, it, err)
		}
		if wr, ok := wire.(*models.Resource); ok {
			wr.EncryptionBlobEncrypted = blobEncrypted
		}
	}

	text, err := p.ser.Serialize(ctx, wire)
	if err != nil {
		return err
	}
	if err := p.tg.Put(ctx, models.SystemPath(id), []byte(text)); err != nil {
		return p.rejectOr(ctx, it, err)
	}

	p.remote[id] = struct{}{}
	p.report.Uploaded++
	// The sync time is the item's own updated_time, so later passes compare
	// timestamps from the same clock.
	return p.tracker.RecordSync(ctx, it.Type(), id, p.target, it.Base().UpdatedTime)
}

// uploadBlob pushes the blob of r and reports whether the uploaded bytes are
// encrypted.
func (p *syncPass) uploadBlob(ctx context.Context, r *models.Resource) (bool, error) {
	var (
		data []byte
		err  error
	)
	if p.encrypt {
		data, err = p.resources.EncryptedBlob(ctx, r)
	} else {
		data, err = p.resources.Read(ctx, r)
	}
	if err != nil {
		return false, err
	}
	if err := p.tg.Put(ctx, remoteBlobPath(r.ID), data); err != nil {
		return false, err
	}
	return p.encrypt || r.EncryptionBlobEncrypted, nil
}

// rejectOr marks it sync-disabled when the target refused it for good, and
// returns err otherwise.
func (p *syncPass) rejectOr(ctx context.Context, it models.Item, err error) error {
	if !errors.Is(err, synctarget.ErrRejected) {
		return err
	}
	p.report.Disabled++
	p.log.Warn(ctx, "item rejected by target", "id", it.Base().ID, "target", p.target, "error", err)
	return p.tracker.MarkDisabled(ctx, it.Type(), it.Base().ID, p.target, err.Error())
}

// resolveRemoteChange handles a locally changed item that also exists on the
// target. It returns true when the remote version was applied locally and
// nothing must be uploaded.
func (p *syncPass) resolveRemoteChange(ctx context.Context, local models.Item) (bool, error) {
	id := local.Base().ID
	syncTime, err := p.tracker.SyncTime(ctx, local.Type(), id, p.target)
	if err != nil {
		return false, err
	}
	remote, err := p.fetch(ctx, id)
	if err != nil {
		return false, err
	}
	ru := remote.Base().UpdatedTime
	if ru <= syncTime || ru == local.Base().UpdatedTime {
		return false, nil
	}

	if n, ok := local.(*models.Note); ok && !n.EncryptionApplied {
		if err := p.saveConflictCopy(ctx, n); err != nil {
			return false, err
		}
	}
	if err := p.applyRemote(ctx, remote, false); err != nil {
		return false, err
	}
	p.report.Updated++
	return true, nil
}

func (p *syncPass) saveConflictCopy(ctx context.Context, n *models.Note) error {
	c := *n
	c.ID = ""
	c.IsConflict = true
	if _, err := p.items.Save(ctx, &c, SaveOptions{IsNew: true}); err != nil {
		return fmt.Errorf("failed to save conflict copy of %s: %w", n.ID, err)
	}
	p.report.Conflicts++
	p.log.Info(ctx, "conflict note created", "note", n.ID, "conflict", c.ID)
	return nil
}

// applyRemote stores remote locally and fetches its blob for resources.
func (p *syncPass) applyRemote(ctx context.Context, remote models.Item, isNew bool) error {
	if _, err := p.items.Save(ctx, remote, SaveOptions{IsNew: isNew, PreserveTimestamps: true}); err != nil {
		return err
	}
	if r, ok := remote.(*models.Resource); ok {
		data, err := p.tg.Get(ctx, remoteBlobPath(r.ID))
		if err != nil {
			return fmt.Errorf("blob of %s: %w", r.ID, err)
		}
		if err := p.resources.Write(ctx, r, data); err != nil {
			return err
		}
	}
	return p.tracker.RecordSync(ctx, remote.Type(), remote.Base().ID, p.target, remote.Base().UpdatedTime)
}

// reconcile downloads new and updated remote items and deletes local items
// that were synced before but are gone from the target.
func (p *syncPass) reconcile(ctx context.Context) error {
	for id := range p.remote {
		if _, done := p.handled[id]; done {
			continue
		}
		if err := p.reconcileOne(ctx, id); err != nil {
			p.log.Warn(ctx, "remote item not applied", "id", id, "error", err)
			p.report.warn("%s: %v", id, err)
		}
	}

	synced, err := p.tracker.SyncedItemIDs(ctx, p.target)
	if err != nil {
		return err
	}
	for _, id := range synced {
		if _, ok := p.remote[id]; ok {
			continue
		}
		if err := p.deleteLocal(ctx, id); err != nil {
			p.report.warn("%s: %v", id, err)
		}
	}
	return nil
}

func (p *syncPass) reconcileOne(ctx context.Context, id string) error {
	local, err := p.items.LoadAny(ctx, id)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	remote, err := p.fetch(ctx, id)
	if err != nil {
		return err
	}

	if local == nil {
		if err := p.applyRemote(ctx, remote, true); err != nil {
			return err
		}
		p.report.Downloaded++
		return nil
	}

	// Local is unchanged here, otherwise upload would have handled it.
	syncTime, err := p.tracker.SyncTime(ctx, local.Type(), id, p.target)
	if err != nil {
		return err
	}
	if remote.Base().UpdatedTime <= syncTime {
		return nil
	}
	if err := p.applyRemote(ctx, remote, false); err != nil {
		return err
	}
	p.report.Updated++
	return nil
}

func (p *syncPass) deleteLocal(ctx context.Context, id string) error {
	it, err := p.items.LoadAny(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return p.tracker.ForgetItem(ctx, id)
	}
	if err != nil {
		return err
	}

	opts := DeleteOptions{DisableTracking: true}
	if it.Type() == models.TypeResource {
		err = p.resources.Delete(ctx, []string{id}, opts)
	} else {
		err = p.items.Delete(ctx, it.Type(), []string{id}, opts)
	}
	if err != nil {
		return err
	}
	p.report.LocalDeleted++
	return p.tracker.ForgetItem(ctx, id)
}
