package noteresources

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) SetForNote(ctx context.Context, noteID string, resourceIDs []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM note_resources WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("failed to clear note resources: %w", err)
	}
	for _, rid := range resourceIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_resources (note_id, resource_id) VALUES (?, ?)`, noteID, rid)
		if err != nil {
			return fmt.Errorf("failed to link resource %s: %w", rid, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) selectIDs(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to select note resources: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ResourceIDs(ctx context.Context, noteID string) ([]string, error) {
	return r.selectIDs(ctx, `SELECT resource_id FROM note_resources WHERE note_id = ? ORDER BY resource_id`, noteID)
}

func (r *SQLiteRepository) NoteIDs(ctx context.Context, resourceID string) ([]string, error) {
	return r.selectIDs(ctx, `SELECT note_id FROM note_resources WHERE resource_id = ? ORDER BY note_id`, resourceID)
}

func (r *SQLiteRepository) DeleteByNotes(ctx context.Context, noteIDs []string) error {
	if len(noteIDs) == 0 {
		return nil
	}
	args := make([]any, len(noteIDs))
	for i, id := range noteIDs {
		args[i] = id
	}
	ph := strings.TrimSuffix(strings.Repeat("?, ", len(noteIDs)), ", ")
	if _, err := r.db.ExecContext(ctx, `DELETE FROM note_resources WHERE note_id IN (`+ph+`)`, args...); err != nil {
		return fmt.Errorf("failed to delete note resources: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByResource(ctx context.Context, resourceID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM note_resources WHERE resource_id = ?`, resourceID); err != nil {
		return fmt.Errorf("failed to delete resource links: %w", err)
	}
	return nil
}
