// Package services contains the application services of the gophnotes
// engine: item persistence rules, sync bookkeeping, encryption, resources,
// import/export and synchronization.
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
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/timex"
)

// SaveOptions controls ItemService.Save.
type SaveOptions struct {
	// IsNew forces an insert even when the item already carries an id.
	IsNew bool

	// PreserveTimestamps keeps created/updated times as given. Used by
	// import, sync and decryption, which restore history rather than edit.
	PreserveTimestamps bool

	// UserSideValidation enables the checks that apply to edits made by the
	// user: encrypted items are read-only and parents must exist.
	UserSideValidation bool
}

type DeleteOptions struct {
	// DisableTracking skips tombstones.
	DisableTracking bool

	// Targets overrides the configured sync targets for tombstones.
	Targets []int
}

// maxTitleAttempts bounds FindUniqueItemTitle.
const maxTitleAttempts = 1000

// ItemService enforces the persistence rules shared by every variant.
type ItemService interface {
	Save(ctx context.Context, it models.Item, opts SaveOptions) (models.Item, error)
	Load(ctx context.Context, t models.ItemType, id string) (models.Item, error)
	LoadAny(ctx context.Context, id string) (models.Item, error)
	List(ctx context.Context, t models.ItemType) ([]models.Item, error)

	// Delete removes ids of type t and records tombstones in the same
	// transaction. Note links are cleaned up. Resource blobs are not touched,
	// use ResourceStore.Delete for resources.
	Delete(ctx context.Context, t models.ItemType, ids []string, opts DeleteOptions) error

	// FindUniqueItemTitle returns title, or title with " (n)" appended, or a
	// timestamp suffix, whichever is not yet used by an item of type t.
	FindUniqueItemTitle(ctx context.Context, t models.ItemType, title string) (string, error)
}

type itemService struct {
	db      *sql.DB
	reg     *registry.Registry
	tracker SyncTracker
	log     logging.Logger
	now     func() time.Time
}

func NewItemService(db *sql.DB, reg *registry.Registry, tracker SyncTracker, log logging.Logger) ItemService {
	return &itemService{db: db, reg: reg, tracker: tracker, log: log, now: time.Now}
}

func (s *itemService) repos(db dbx.DBTX) *repositories.Repositories {
	return repositories.New(db, s.reg)
}

func (s *itemService) Save(ctx context.Context, it models.Item, opts SaveOptions) (models.Item, error) {
	b := it.Base()

	if opts.UserSideValidation && b.EncryptionApplied {
		return nil, fmt.Errorf("save %s %s: %w", it.Type(), b.ID, common.ErrImmutableEncrypted)
	}

	if b.EncryptionApplied && b.EncryptionCipherText == "" {
		return nil, fmt.Errorf("save %s %s: %w", it.Type(), b.ID, common.ErrMissingCipherText)
	}

	isNew := opts.IsNew || b.ID == ""
	if b.ID == "" {
		b.ID = common.NewID()
	}

	s.stamp(b, isNew, opts.PreserveTimestamps)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := s.repos(tx)

		if isNew {
			_, err := r.Items.Find(ctx, b.ID)
			if err == nil {
				return fmt.Errorf("%s: %w", b.ID, common.ErrDuplicateID)
			}
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}
		}

		if err := s.validateParent(ctx, r, it, opts.UserSideValidation); err != nil {
			return err
		}

		if isNew {
			if err := r.Items.Insert(ctx, it); err != nil {
				return err
			}
		} else if err := r.Items.Update(ctx, it); err != nil {
			return err
		}

		if n, ok := it.(*models.Note); ok && !n.EncryptionApplied {
			return s.linkResources(ctx, r, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug(ctx, "item saved", "type", it.Type().String(), "id", b.ID, "new", isNew)
	return it, nil
}

func (s *itemService) stamp(b *models.BaseItem, isNew, preserve bool) {
	now := s.now().UnixMilli()
	if preserve {
		if isNew && b.CreatedTime == 0 {
			b.CreatedTime = now
		}
		if b.UpdatedTime == 0 {
			b.UpdatedTime = b.CreatedTime
		}
		return
	}

	if isNew && b.CreatedTime == 0 {
		b.CreatedTime = now
	}
	b.UpdatedTime = now
	if isNew && b.UserCreatedTime == 0 {
		b.UserCreatedTime = b.CreatedTime
	}
	b.UserUpdatedTime = now
}

// validateParent walks the folder chain above it. A cycle is always an
// error. A missing parent is only an error for user edits: import and sync
// deliver items in arbitrary order.
func (s *itemService) validateParent(ctx context.Context, r *repositories.Repositories, it models.Item, userSide bool) error {
	parent := models.ParentID(it)
	if parent == "" {
		return nil
	}
	_, isFolder := it.(*models.Folder)
	self := it.Base().ID

	seen := make(map[string]struct{})
	for cur := parent; cur != ""; {
		if isFolder && cur == self {
			return fmt.Errorf("folder %s: %w", self, common.ErrFolderCycle)
		}
		if _, ok := seen[cur]; ok {
			return fmt.Errorf("folder %s: %w", cur, common.ErrFolderCycle)
		}
		seen[cur] = struct{}{}

		f, err := r.Items.Get(ctx, models.TypeFolder, cur)
		if errors.Is(err, common.ErrorNotFound) {
			if userSide {
				return fmt.Errorf("%s: %w", cur, common.ErrParentNotFound)
			}
			return nil
		}
		if err != nil {
			return err
		}
		// only the direct parent has to exist
		userSide = false
		cur = f.(*models.Folder).ParentID
	}
	return nil
}

// linkResources rewrites the link rows of n. Linked ids that are known to be
// something other than a resource are skipped; unknown ids are kept because
// the resource may arrive later in the same import or sync.
func (s *itemService) linkResources(ctx context.Context, r *repositories.Repositories, n *models.Note) error {
	var ids []string
	for _, id := range models.LinkedItemIDs(n.Body) {
		it, err := r.Items.Find(ctx, id)
		if err == nil && it.Type() != models.TypeResource {
			continue
		}
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		ids = append(ids, id)
	}
	return r.NoteResources.SetForNote(ctx, n.ID, ids)
}

func (s *itemService) Load(ctx context.Context, t models.ItemType, id string) (models.Item, error) {
	return s.repos(s.db).Items.Get(ctx, t, id)
}

func (s *itemService) LoadAny(ctx context.Context, id string) (models.Item, error) {
	return s.repos(s.db).Items.Find(ctx, id)
}

func (s *itemService) List(ctx context.Context, t models.ItemType) ([]models.Item, error) {
	return s.repos(s.db).Items.List(ctx, t)
}

func (s *itemService) Delete(ctx context.Context, t models.ItemType, ids []string, opts DeleteOptions) error {
	if len(ids) == 0 {
		return nil
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := s.repos(tx)

		var conflicts []string
		if t == models.TypeNote {
			var err error
			if conflicts, err = r.Items.ConflictNoteIDs(ctx, ids); err != nil {
				return err
			}
		}

		if _, err := r.Items.Delete(ctx, t, ids); err != nil {
			return err
		}
		if t == models.TypeNote {
			if err := r.NoteResources.DeleteByNotes(ctx, ids); err != nil {
				return err
			}
		}

		return s.tracker.OnDeleteTx(ctx, tx, Deletion{
			ItemType:     t,
			IDs:          ids,
			Targets:      opts.Targets,
			TrackDeleted: !opts.DisableTracking,
			Excluded:     conflicts,
			Time:         s.now().UnixMilli(),
		})
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", t, err)
	}

	s.log.Info(ctx, "items deleted", "type", t.String(), "count", len(ids))
	return nil
}

func (s *itemService) FindUniqueItemTitle(ctx context.Context, t models.ItemType, title string) (string, error) {
	r := s.repos(s.db).Items
	candidate := title
	for i := 1; i <= maxTitleAttempts; i++ {
		exists, err := r.TitleExists(ctx, t, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		if i < 100 {
			candidate = title + " (" + strconv.Itoa(i) + ")"
		} else {
			candidate = title + " (" + timex.FormatMs(s.now().UnixMilli()) + " " + strconv.Itoa(i) + ")"
		}
	}
	return "", fmt.Errorf("%q: %w", title, common.ErrNoUniqueTitle)
}
