package deleteditems

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

const insertQuery = `INSERT INTO deleted_items (item_type, item_id, deleted_time, sync_target) VALUES (?, ?, ?, ?)`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// InsertQuery returns the statement that Insert would run, for callers that
// batch tombstones into a single transaction.
func InsertQuery(d models.DeletedItem) dbx.Query {
	return dbx.Query{SQL: insertQuery, Args: []any{int(d.ItemType), d.ItemID, d.DeletedTime, d.SyncTarget}}
}

func (r *SQLiteRepository) Insert(ctx context.Context, d models.DeletedItem) error {
	q := InsertQuery(d)
	if _, err := r.db.ExecContext(ctx, q.SQL, q.Args...); err != nil {
		return fmt.Errorf("failed to insert deleted item %s: %w", d.ItemID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListByTarget(ctx context.Context, target int) ([]models.DeletedItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item_type, item_id, deleted_time, sync_target FROM deleted_items WHERE sync_target = ? ORDER BY id`, target)
	if err != nil {
		return nil, fmt.Errorf("failed to select deleted items: %w", err)
	}
	defer rows.Close()

	var result []models.DeletedItem
	for rows.Next() {
		var d models.DeletedItem
		var itemType int
		if err := rows.Scan(&d.ID, &itemType, &d.ItemID, &d.DeletedTime, &d.SyncTarget); err != nil {
			return nil, fmt.Errorf("failed to scan deleted item: %w", err)
		}
		d.ItemType = models.ItemType(itemType)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) CountByTarget(ctx context.Context, target int) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deleted_items WHERE sync_target = ?`, target).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count deleted items: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, target int, itemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM deleted_items WHERE item_id = ? AND sync_target = ?`, itemID, target)
	if err != nil {
		return fmt.Errorf("failed to remove deleted item %s: %w", itemID, err)
	}
	return nil
}
