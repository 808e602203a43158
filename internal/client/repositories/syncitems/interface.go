package syncitems

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

type Repository interface {
	// Upsert writes the row for (s.SyncTarget, s.ItemID), replacing any
	// previous state.
	Upsert(ctx context.Context, s models.SyncItem) error

	// Get returns common.ErrorNotFound when the item was never synced to target.
	Get(ctx context.Context, target int, itemID string) (*models.SyncItem, error)

	ListDisabled(ctx context.Context, target int) ([]models.SyncItem, error)

	// SyncedItemIDs lists ids with a non-zero sync time on target.
	SyncedItemIDs(ctx context.Context, target int) ([]string, error)

	Count(ctx context.Context, target int, t models.ItemType) (int, error)

	DeleteByItem(ctx context.Context, target int, itemID string) error
	DeleteAllForItems(ctx context.Context, itemIDs []string) error
}
