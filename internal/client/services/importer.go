package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/registry"
	"github.com/dmitrijs2005/gophnotes/internal/client/serializer"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/filex"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

const (
	DefaultImportFolderTitle = "Imported"
	resourcesDirName         = "resources"
)

type ImportOptions struct {
	SourcePath string

	// DestinationFolderID, when set, receives every imported note and no
	// folder from the archive is created.
	DestinationFolderID string

	// DefaultFolderTitle names the folder created for notes whose folder is
	// not part of the archive. Defaults to "Imported".
	DefaultFolderTitle string
}

type ImportResult struct {
	Warnings []string
	Counts   map[models.ItemType]int
}

func (r *ImportResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Importer reads a raw export directory: one <id>.md file per item plus the
// resource blobs under resources/. Every item gets a fresh id and links
// between notes are rewritten to the new ids.
type Importer struct {
	ser       *serializer.Serializer
	items     ItemService
	resources ResourceStore
	log       logging.Logger
	newID     func() string
}

func NewImporter(reg *registry.Registry, items ItemService, resources ResourceStore, log logging.Logger) *Importer {
	return &Importer{
		ser:       serializer.New(reg),
		items:     items,
		resources: resources,
		log:       log,
		newID:     common.NewID,
	}
}

// importRun holds the state of one Import call.
type importRun struct {
	*Importer
	opts          ImportOptions
	result        *ImportResult
	files         []string
	idMap         map[string]string
	created       map[string]*models.Resource
	defaultFolder *models.Folder
}

// Import runs one pass over opts.SourcePath. Failures of single items are
// returned as warnings; the error is reserved for problems with the pass
// itself.
func (im *Importer) Import(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	if !filex.IsDir(opts.SourcePath) {
		return nil, fmt.Errorf("import source %s is not a directory", opts.SourcePath)
	}
	if opts.DestinationFolderID != "" {
		if _, err := im.items.Load(ctx, models.TypeFolder, opts.DestinationFolderID); err != nil {
			return nil, fmt.Errorf("destination folder %s: %w", opts.DestinationFolderID, common.ErrParentNotFound)
		}
	}

	files, err := filex.ListFiles(opts.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", opts.SourcePath, err)
	}

	run := &importRun{
		Importer: im,
		opts:     opts,
		result:   &ImportResult{Counts: make(map[models.ItemType]int)},
		files:    files,
		idMap:    make(map[string]string),
		created:  make(map[string]*models.Resource),
	}

	for _, name := range files {
		if !strings.EqualFold(filepath.Ext(name), ".md") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return run.result, err
		}
		if err := run.importFile(ctx, filepath.Join(opts.SourcePath, name)); err != nil {
			im.log.Warn(ctx, "item not imported", "file", name, "error", err)
			run.result.warn("%s: %v", name, err)
		}
	}

	if err := run.copyResources(ctx); err != nil {
		return run.result, err
	}

	im.log.Info(ctx, "import finished",
		"notes", run.result.Counts[models.TypeNote],
		"folders", run.result.Counts[models.TypeFolder],
		"resources", run.result.Counts[models.TypeResource],
		"warnings", len(run.result.Warnings))
	return run.result, nil
}

// mapID returns the new id of old, allocating one on first use.
func (r *importRun) mapID(old string) string {
	if id, ok := r.idMap[old]; ok {
		return id
	}
	id := r.newID()
	r.idMap[old] = id
	return id
}

func (r *importRun) folderInArchive(id string) bool {
	if id == "" {
		return false
	}
	for _, name := range r.files {
		if strings.EqualFold(models.PathToID(name), id) {
			return true
		}
	}
	return false
}

func (r *importRun) getDefaultFolder(ctx context.Context) (*models.Folder, error) {
	if r.defaultFolder != nil {
		return r.defaultFolder, nil
	}
	title := r.opts.DefaultFolderTitle
	if title == "" {
		title = DefaultImportFolderTitle
	}
	title, err := r.items.FindUniqueItemTitle(ctx, models.TypeFolder, title)
	if err != nil {
		return nil, err
	}
	f := &models.Folder{BaseItem: models.BaseItem{Title: title}}
	if _, err := r.items.Save(ctx, f, SaveOptions{}); err != nil {
		return nil, err
	}
	r.result.Counts[models.TypeFolder]++
	r.defaultFolder = f
	return f, nil
}

// setFolderToImportTo decides, once per referenced parent id, where items
// pointing at it end up.
func (r *importRun) setFolderToImportTo(ctx context.Context, parentID string) error {
	if _, ok := r.idMap[parentID]; ok {
		return nil
	}
	switch {
	case r.opts.DestinationFolderID != "":
		r.idMap[parentID] = r.opts.DestinationFolderID
	case !r.folderInArchive(parentID):
		f, err := r.getDefaultFolder(ctx)
		if err != nil {
			return err
		}
		r.idMap[parentID] = f.ID
	default:
		r.idMap[parentID] = r.newID()
	}
	return nil
}

func (r *importRun) replaceLinkedItemIDs(body string) string {
	for _, id := range models.LinkedItemIDs(body) {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(id))
		body = re.ReplaceAllLiteralString(body, r.mapID(id))
	}
	return body
}

func (r *importRun) importFile(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	it, err := r.ser.Deserialize(string(content))
	if err != nil {
		return err
	}

	switch x := it.(type) {
	case *models.Note:
		if err := r.setFolderToImportTo(ctx, x.ParentID); err != nil {
			return err
		}
		x.ID = r.mapID(x.ID)
		x.ParentID = r.idMap[x.ParentID]
		x.Body = r.replaceLinkedItemIDs(x.Body)

	case *models.Folder:
		if r.opts.DestinationFolderID != "" {
			return nil
		}
		x.ID = r.mapID(x.ID)
		if x.Title, err = r.items.FindUniqueItemTitle(ctx, models.TypeFolder, x.Title); err != nil {
			return err
		}
		if x.ParentID != "" {
			if err := r.setFolderToImportTo(ctx, x.ParentID); err != nil {
				return err
			}
			x.ParentID = r.idMap[x.ParentID]
		}

	case *models.Resource:
		x.ID = r.mapID(x.ID)
		r.created[x.ID] = x
	}

	if _, err := r.items.Save(ctx, it, SaveOptions{IsNew: true, PreserveTimestamps: true}); err != nil {
		if _, ok := it.(*models.Resource); ok {
			delete(r.created, it.Base().ID)
		}
		return err
	}
	r.result.Counts[it.Type()]++
	return nil
}

// copyResources copies blobs whose id was seen during the pass. Resource
// metadata files register their own id, so a blob is imported when either
// its metadata or a note linking to it is part of the archive.
func (r *importRun) copyResources(ctx context.Context) error {
	dir := filepath.Join(r.opts.SourcePath, resourcesDirName)
	if !filex.IsDir(dir) {
		return nil
	}
	names, err := filex.ListFiles(dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	for _, name := range names {
		oldID := models.PathToID(name)
		newID, ok := r.idMap[oldID]
		if !ok {
			r.result.warn("Resource file is not referenced in any note and so was not imported: %s", oldID)
			continue
		}
		res, ok := r.created[newID]
		if !ok {
			r.result.warn("Resource %s is referenced but its metadata is missing from the archive", oldID)
			continue
		}
		dst := r.resources.FullPath(res, res.EncryptionBlobEncrypted)
		if err := filex.CopyFile(filepath.Join(dir, name), dst); err != nil {
			r.result.warn("%s: %v", name, err)
		}
	}
	return nil
}
