package items

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

// Repository describes storage operations over items of any variant.
type Repository interface {
	// Insert stores a new row. The id must not exist in the item's table.
	Insert(ctx context.Context, it models.Item) error

	// Update overwrites every column of an existing row.
	Update(ctx context.Context, it models.Item) error

	Get(ctx context.Context, t models.ItemType, id string) (models.Item, error)

	// Find looks the id up in every table, in registry order.
	Find(ctx context.Context, id string) (models.Item, error)

	List(ctx context.Context, t models.ItemType) ([]models.Item, error)

	// Delete removes rows by id and reports how many were removed.
	Delete(ctx context.Context, t models.ItemType, ids []string) (int64, error)

	Count(ctx context.Context, t models.ItemType) (int, error)
	EncryptedCount(ctx context.Context, t models.ItemType) (int, error)

	// NeedDecryption returns up to limit encrypted items not in exclude.
	// For resources an encrypted blob also qualifies.
	NeedDecryption(ctx context.Context, t models.ItemType, exclude []string, limit int) ([]models.Item, error)

	// NeedSync returns items never synced to target or changed since, skipping
	// sync-disabled ones.
	NeedSync(ctx context.Context, t models.ItemType, target int, limit int) ([]models.Item, error)

	TitleExists(ctx context.Context, t models.ItemType, title string) (bool, error)

	// ConflictNoteIDs returns the subset of ids that are conflict notes.
	ConflictNoteIDs(ctx context.Context, ids []string) ([]string, error)
}
