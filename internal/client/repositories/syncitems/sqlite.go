package syncitems

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, s models.SyncItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_items (sync_target, sync_time, item_type, item_id, sync_disabled, sync_disabled_reason)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sync_target, item_id) DO UPDATE SET
			sync_time = excluded.sync_time,
			item_type = excluded.item_type,
			sync_disabled = excluded.sync_disabled,
			sync_disabled_reason = excluded.sync_disabled_reason
	`, s.SyncTarget, s.SyncTime, int(s.ItemType), s.ItemID, boolInt(s.SyncDisabled), s.SyncDisabledReason)
	if err != nil {
		return fmt.Errorf("failed to upsert sync item %s/%d: %w", s.ItemID, s.SyncTarget, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const selectColumns = `sync_target, sync_time, item_type, item_id, sync_disabled, sync_disabled_reason`

func scan(row interface{ Scan(...any) error }) (models.SyncItem, error) {
	var s models.SyncItem
	var itemType, disabled int
	err := row.Scan(&s.SyncTarget, &s.SyncTime, &itemType, &s.ItemID, &disabled, &s.SyncDisabledReason)
	s.ItemType = models.ItemType(itemType)
	s.SyncDisabled = disabled != 0
	return s, err
}

func (r *SQLiteRepository) Get(ctx context.Context, target int, itemID string) (*models.SyncItem, error) {
	s, err := scan(r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM sync_items WHERE sync_target = ? AND item_id = ?`, target, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync item: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepository) ListDisabled(ctx context.Context, target int) ([]models.SyncItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM sync_items WHERE sync_disabled = 1 AND sync_target = ? ORDER BY id`, target)
	if err != nil {
		return nil, fmt.Errorf("failed to select disabled sync items: %w", err)
	}
	defer rows.Close()

	var result []models.SyncItem
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync item: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) SyncedItemIDs(ctx context.Context, target int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id FROM sync_items WHERE sync_time > 0 AND sync_target = ? ORDER BY id`, target)
	if err != nil {
		return nil, fmt.Errorf("failed to select synced item ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) Count(ctx context.Context, target int, t models.ItemType) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_items WHERE sync_target = ? AND item_type = ?`, target, int(t)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sync items: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteByItem(ctx context.Context, target int, itemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_items WHERE sync_target = ? AND item_id = ?`, target, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete sync item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllForItems(ctx context.Context, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	ph := strings.TrimSuffix(strings.Repeat("?, ", len(itemIDs)), ", ")
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_items WHERE item_id IN (`+ph+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to delete sync items: %w", err)
	}
	return nil
}
