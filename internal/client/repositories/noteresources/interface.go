package noteresources

import "context"

type Repository interface {
	// SetForNote replaces the links of noteID with resourceIDs.
	SetForNote(ctx context.Context, noteID string, resourceIDs []string) error
	ResourceIDs(ctx context.Context, noteID string) ([]string, error)
	NoteIDs(ctx context.Context, resourceID string) ([]string, error)
	DeleteByNotes(ctx context.Context, noteIDs []string) error
	DeleteByResource(ctx context.Context, resourceID string) error
}
