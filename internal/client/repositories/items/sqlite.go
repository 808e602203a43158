package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/registry"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db  dbx.DBTX
	reg *registry.Registry
}

func NewSQLiteRepository(db dbx.DBTX, reg *registry.Registry) *SQLiteRepository {
	return &SQLiteRepository{db: db, reg: reg}
}

func (r *SQLiteRepository) handler(t models.ItemType) (registry.Handler, error) {
	return r.reg.Resolve(t)
}

func columns(h registry.Handler, alias string) string {
	names := h.FieldNames()
	if alias != "" {
		for i, n := range names {
			names[i] = alias + "." + n
		}
	}
	return strings.Join(names, ", ")
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func args(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func columnValues(h registry.Handler, it models.Item) []any {
	vals := it.Values()
	names := h.FieldNames()
	out := make([]any, len(names))
	for i, n := range names {
		v := vals[n]
		if b, ok := v.(bool); ok {
			if b {
				v = int64(1)
			} else {
				v = int64(0)
			}
		}
		out[i] = v
	}
	return out
}

func (r *SQLiteRepository) Insert(ctx context.Context, it models.Item) error {
	h, err := r.handler(it.Type())
	if err != nil {
		return err
	}
	vals := columnValues(h, it)
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, h.TableName(), columns(h, ""), placeholders(len(vals)))
	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("failed to insert %s %s: %w", it.Type(), it.Base().ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, it models.Item) error {
	h, err := r.handler(it.Type())
	if err != nil {
		return err
	}

	names := h.FieldNames()
	vals := columnValues(h, it)
	sets := make([]string, 0, len(names))
	setArgs := make([]any, 0, len(names))
	for i, n := range names {
		if n == models.FieldID {
			continue
		}
		sets = append(sets, n+" = ?")
		setArgs = append(setArgs, vals[i])
	}
	setArgs = append(setArgs, it.Base().ID)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, h.TableName(), strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, setArgs...)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", it.Type(), it.Base().ID, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("update %s %s: %w", it.Type(), it.Base().ID, common.ErrorNotFound)
	}
	return nil
}

// scanItem reads one row selected with columns(h, ...).
func scanItem(h registry.Handler, row interface{ Scan(...any) error }) (models.Item, error) {
	names := h.FieldNames()
	dest := make([]any, len(names))
	for i, n := range names {
		kind, _ := h.FieldType(n)
		if kind == models.KindText {
			dest[i] = new(string)
		} else {
			dest[i] = new(int64)
		}
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	it := h.New()
	for i, n := range names {
		var v any
		switch p := dest[i].(type) {
		case *string:
			v = *p
		case *int64:
			v = *p
		}
		if err := it.Assign(n, v); err != nil {
			return nil, err
		}
	}
	return it, nil
}

func (r *SQLiteRepository) queryItems(ctx context.Context, h registry.Handler, query string, qargs ...any) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, qargs...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", h.TableName(), err)
	}
	defer rows.Close()

	var result []models.Item
	for rows.Next() {
		it, err := scanItem(h, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", h.TableName(), err)
		}
		result = append(result, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", h.TableName(), err)
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, t models.ItemType, id string) (models.Item, error) {
	h, err := r.handler(t)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, columns(h, ""), h.TableName())
	it, err := scanItem(h, r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", t, id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", t, id, err)
	}
	return it, nil
}

func (r *SQLiteRepository) Find(ctx context.Context, id string) (models.Item, error) {
	for _, t := range r.reg.Types() {
		it, err := r.Get(ctx, t, id)
		if err == nil {
			return it, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("item %s: %w", id, common.ErrorNotFound)
}

func (r *SQLiteRepository) List(ctx context.Context, t models.ItemType) ([]models.Item, error) {
	h, err := r.handler(t)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_time, id`, columns(h, ""), h.TableName())
	return r.queryItems(ctx, h, query)
}

func (r *SQLiteRepository) Delete(ctx context.Context, t models.ItemType, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	h, err := r.handler(t)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id IN (%s)`, h.TableName(), placeholders(len(ids)))
	res, err := r.db.ExecContext(ctx, query, args(ids)...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", h.TableName(), err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra, nil
}

func (r *SQLiteRepository) count(ctx context.Context, t models.ItemType, where string) (int, error) {
	h, err := r.handler(t)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, h.TableName(), where)
	var n int
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", h.TableName(), err)
	}
	return n, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, t models.ItemType) (int, error) {
	return r.count(ctx, t, "")
}

func (r *SQLiteRepository) EncryptedCount(ctx context.Context, t models.ItemType) (int, error) {
	if t == models.TypeMasterKey {
		return 0, nil
	}
	return r.count(ctx, t, "WHERE encryption_applied = 1")
}

func (r *SQLiteRepository) NeedDecryption(ctx context.Context, t models.ItemType, exclude []string, limit int) ([]models.Item, error) {
	h, err := r.handler(t)
	if err != nil {
		return nil, err
	}

	cond := "encryption_applied = 1"
	if t == models.TypeResource {
		cond = "(encryption_applied = 1 OR encryption_blob_encrypted = 1)"
	}
	qargs := args(exclude)
	if len(exclude) > 0 {
		cond += fmt.Sprintf(" AND id NOT IN (%s)", placeholders(len(exclude)))
	}
	qargs = append(qargs, limit)

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY updated_time, id LIMIT ?`, columns(h, ""), h.TableName(), cond)
	return r.queryItems(ctx, h, query, qargs...)
}

func (r *SQLiteRepository) NeedSync(ctx context.Context, t models.ItemType, target int, limit int) ([]models.Item, error) {
	h, err := r.handler(t)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s i
		LEFT JOIN sync_items s ON s.item_id = i.id AND s.sync_target = ?
		WHERE (s.id IS NULL OR i.updated_time > s.sync_time) AND COALESCE(s.sync_disabled, 0) = 0
		ORDER BY i.updated_time, i.id
		LIMIT ?`, columns(h, "i"), h.TableName())
	return r.queryItems(ctx, h, query, target, limit)
}

func (r *SQLiteRepository) TitleExists(ctx context.Context, t models.ItemType, title string) (bool, error) {
	h, err := r.handler(t)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE title = ?`, h.TableName())
	var n int
	if err := r.db.QueryRowContext(ctx, query, title).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up title: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ConflictNoteIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT id FROM notes WHERE is_conflict = 1 AND id IN (%s)`, placeholders(len(ids)))
	rows, err := r.db.QueryContext(ctx, query, args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to select conflict notes: %w", err)
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
