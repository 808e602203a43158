package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/registry"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/deleteditems"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/timex"
)

// Deletion describes one batch delete of items of a single variant.
type Deletion struct {
	ItemType models.ItemType
	IDs      []string

	// Targets overrides the configured sync targets when non-nil.
	Targets []int

	// TrackDeleted false skips tombstones entirely, e.g. when the delete
	// itself came from a sync target.
	TrackDeleted bool

	// Excluded ids never get tombstones. Conflict notes still present in
	// the store are excluded automatically.
	Excluded []string

	// Time is the deletion time; zero means now.
	Time int64
}

// SyncTracker records which items were pushed to which sync target and
// which deletions still have to be propagated.
//
// Tombstones are per target and are removed by Drain once a target has
// applied them. After every target known at delete time has drained, no
// record of the deletion remains, so a target added or first synced later
// is never told about it.
type SyncTracker interface {
	Targets() []int

	// OnDelete writes tombstones for d in its own transaction.
	OnDelete(ctx context.Context, d Deletion) error

	// OnDeleteTx writes tombstones for d on tx. Either every (item, target)
	// row is written or the returned error aborts the caller's transaction.
	OnDeleteTx(ctx context.Context, tx dbx.DBTX, d Deletion) error

	RecordSync(ctx context.Context, t models.ItemType, itemID string, target int, syncTime int64) error
	MarkDisabled(ctx context.Context, t models.ItemType, itemID string, target int, reason string) error

	// ListDisabled returns sync-disabled items of target joined with their
	// live item. Rows whose item no longer exists are skipped.
	ListDisabled(ctx context.Context, target int) ([]models.DisabledItem, error)

	PendingTombstones(ctx context.Context, target int) ([]models.DeletedItem, error)
	TombstoneCount(ctx context.Context, target int) (int, error)

	// Drain removes the tombstone of itemID for target only, together with
	// the item's sync state on that target. Tombstones of other targets are
	// left alone.
	Drain(ctx context.Context, target int, itemID string) error

	SyncedItemIDs(ctx context.Context, target int) ([]string, error)
	SyncedCount(ctx context.Context, target int, t models.ItemType) (int, error)

	// SyncTime returns 0 when the item was never synced to target.
	SyncTime(ctx context.Context, t models.ItemType, itemID string, target int) (int64, error)

	// ForgetItem drops the sync state of itemID on every target.
	ForgetItem(ctx context.Context, itemID string) error
}

type syncTracker struct {
	db      *sql.DB
	reg     *registry.Registry
	targets []int
	log     logging.Logger
}

func NewSyncTracker(db *sql.DB, reg *registry.Registry, targets []int, log logging.Logger) SyncTracker {
	t := make([]int, len(targets))
	copy(t, targets)
	return &syncTracker{db: db, reg: reg, targets: t, log: log}
}

func (s *syncTracker) repos(db dbx.DBTX) *repositories.Repositories {
	return repositories.New(db, s.reg)
}

func (s *syncTracker) Targets() []int {
	out := make([]int, len(s.targets))
	copy(out, s.targets)
	return out
}

func (s *syncTracker) OnDelete(ctx context.Context, d Deletion) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.OnDeleteTx(ctx, tx, d)
	})
}

func (s *syncTracker) OnDeleteTx(ctx context.Context, tx dbx.DBTX, d Deletion) error {
	if !d.TrackDeleted || len(d.IDs) == 0 {
		return nil
	}

	excluded := make(map[string]struct{}, len(d.Excluded))
	for _, id := range d.Excluded {
		excluded[id] = struct{}{}
	}
	if d.ItemType == models.TypeNote {
		conflicts, err := s.repos(tx).Items.ConflictNoteIDs(ctx, d.IDs)
		if err != nil {
			return err
		}
		for _, id := range conflicts {
			excluded[id] = struct{}{}
		}
	}

	targets := d.Targets
	if targets == nil {
		targets = s.targets
	}
	now := d.Time
	if now == 0 {
		now = timex.NowMs()
	}

	queries := make([]dbx.Query, 0, len(d.IDs)*len(targets))
	for _, id := range d.IDs {
		if _, skip := excluded[id]; skip {
			continue
		}
		for _, target := range targets {
			queries = append(queries, deleteditems.InsertQuery(models.DeletedItem{
				ItemType:    d.ItemType,
				ItemID:      id,
				DeletedTime: now,
				SyncTarget:  target,
			}))
		}
	}

	if err := dbx.ExecAll(ctx, tx, queries); err != nil {
		return fmt.Errorf("failed to record tombstones: %w", err)
	}
	s.log.Debug(ctx, "tombstones recorded", "type", d.ItemType.String(), "rows", len(queries))
	return nil
}

func (s *syncTracker) RecordSync(ctx context.Context, t models.ItemType, itemID string, target int, syncTime int64) error {
	return s.repos(s.db).SyncItems.Upsert(ctx, models.SyncItem{
		ItemType:   t,
		ItemID:     itemID,
		SyncTarget: target,
		SyncTime:   syncTime,
	})
}

func (s *syncTracker) MarkDisabled(ctx context.Context, t models.ItemType, itemID string, target int, reason string) error {
	r := s.repos(s.db).SyncItems
	cur, err := r.Get(ctx, target, itemID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	row := models.SyncItem{ItemType: t, ItemID: itemID, SyncTarget: target}
	if cur != nil {
		row.SyncTime = cur.SyncTime
	}
	row.SyncDisabled = true
	row.SyncDisabledReason = reason
	return r.Upsert(ctx, row)
}

func (s *syncTracker) ListDisabled(ctx context.Context, target int) ([]models.DisabledItem, error) {
	r := s.repos(s.db)
	rows, err := r.SyncItems.ListDisabled(ctx, target)
	if err != nil {
		return nil, err
	}

	var out []models.DisabledItem
	for _, row := range rows {
		it, err := r.Items.Get(ctx, row.ItemType, row.ItemID)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, models.DisabledItem{SyncItem: row, Item: it})
	}
	return out, nil
}

func (s *syncTracker) PendingTombstones(ctx context.Context, target int) ([]models.DeletedItem, error) {
	return s.repos(s.db).DeletedItems.ListByTarget(ctx, target)
}

func (s *syncTracker) TombstoneCount(ctx context.Context, target int) (int, error) {
	return s.repos(s.db).DeletedItems.CountByTarget(ctx, target)
}

func (s *syncTracker) Drain(ctx context.Context, target int, itemID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := s.repos(tx)
		if err := r.DeletedItems.Remove(ctx, target, itemID); err != nil {
			return err
		}
		return r.SyncItems.DeleteByItem(ctx, target, itemID)
	})
}

func (s *syncTracker) SyncedItemIDs(ctx context.Context, target int) ([]string, error) {
	return s.repos(s.db).SyncItems.SyncedItemIDs(ctx, target)
}

func (s *syncTracker) SyncedCount(ctx context.Context, target int, t models.ItemType) (int, error) {
	return s.repos(s.db).SyncItems.Count(ctx, target, t)
}

func (s *syncTracker) SyncTime(ctx context.Context, t models.ItemType, itemID string, target int) (int64, error) {
	row, err := s.repos(s.db).SyncItems.Get(ctx, target, itemID)
	if errors.Is(err, common.ErrorNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.SyncTime, nil
}

func (s *syncTracker) ForgetItem(ctx context.Context, itemID string) error {
	return s.repos(s.db).SyncItems.DeleteAllForItems(ctx, []string{itemID})
}
