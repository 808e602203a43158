package deleteditems

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

type Repository interface {
	Insert(ctx context.Context, d models.DeletedItem) error
	ListByTarget(ctx context.Context, target int) ([]models.DeletedItem, error)
	CountByTarget(ctx context.Context, target int) (int, error)

	// Remove drops the tombstone of itemID for target only.
	Remove(ctx context.Context, target int, itemID string) error
}
