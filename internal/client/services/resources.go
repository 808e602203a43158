package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/noteresources"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/filex"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// MaxResourceSize is the exclusive upper bound on attachment size.
const MaxResourceSize = 10_000_000

// cryptedExtension names blobs still in their encrypted form.
const cryptedExtension = "crypted"

var mimeExtensions = map[string]string{
	"image/jpeg":      "jpg",
	"image/jpg":       "jpg",
	"image/png":       "png",
	"image/gif":       "gif",
	"image/webp":      "webp",
	"image/bmp":       "bmp",
	"image/svg+xml":   "svg",
	"application/pdf": "pdf",
	"text/plain":      "txt",
	"text/html":       "html",
	"text/markdown":   "md",
	"application/zip": "zip",
}

var unsafeExtChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ResourceStore manages the blobs of Resource items. Blobs live outside the
// database at <dir>/<id>[.<ext>].
type ResourceStore interface {
	Dir() string

	// Filename is the blob name of r. With encryptedBlob the extension is
	// always "crypted".
	Filename(r *models.Resource, encryptedBlob bool) string
	FullPath(r *models.Resource, encryptedBlob bool) string

	// Write and Read use the encrypted blob path when
	// r.EncryptionBlobEncrypted is set.
	Write(ctx context.Context, r *models.Resource, data []byte) error
	Read(ctx context.Context, r *models.Resource) ([]byte, error)

	// Delete processes ids one at a time: blob, then row and tombstones,
	// then note links. A failure on one id does not stop the others.
	Delete(ctx context.Context, ids []string, opts DeleteOptions) error

	// CreateFromPath copies the file at path into the store as a new
	// resource. Files of MaxResourceSize bytes or more are rejected before
	// anything is written.
	CreateFromPath(ctx context.Context, path string) (*models.Resource, error)

	// AttachFileToNote creates a resource from path and inserts its markdown
	// tag into the body of note at byte offset position. A negative position
	// appends.
	AttachFileToNote(ctx context.Context, note *models.Note, path string, position int) (*models.Note, error)

	// EncryptedBlob returns the blob of r sealed with the active master key.
	EncryptedBlob(ctx context.Context, r *models.Resource) ([]byte, error)

	// DecryptBlob replaces the encrypted blob of r by its plain form.
	DecryptBlob(ctx context.Context, r *models.Resource) (*models.Resource, error)
}

type resourceStore struct {
	db    *sql.DB
	dir   string
	items ItemService
	enc   EncryptionService
	log   logging.Logger
}

func NewResourceStore(db *sql.DB, dir string, items ItemService, enc EncryptionService, log logging.Logger) ResourceStore {
	return &resourceStore{db: db, dir: dir, items: items, enc: enc, log: log}
}

func (s *resourceStore) linkRepo() noteresources.Repository {
	return noteresources.NewSQLiteRepository(s.db)
}

func (s *resourceStore) Dir() string { return s.dir }

func extensionForMime(m string) string {
	if ext, ok := mimeExtensions[strings.ToLower(m)]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(m)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.TrimPrefix(exts[0], ".")
}

func (s *resourceStore) Filename(r *models.Resource, encryptedBlob bool) string {
	ext := r.FileExtension
	if encryptedBlob {
		ext = cryptedExtension
	}
	if ext == "" && r.Mime != "" {
		ext = extensionForMime(r.Mime)
	}
	if ext == "" {
		return r.ID
	}
	return r.ID + "." + ext
}

func (s *resourceStore) FullPath(r *models.Resource, encryptedBlob bool) string {
	return filepath.Join(s.dir, s.Filename(r, encryptedBlob))
}

func (s *resourceStore) Write(ctx context.Context, r *models.Resource, data []byte) error {
	if _, err := filex.EnsureDir(s.dir); err != nil {
		return err
	}
	if err := os.WriteFile(s.FullPath(r, r.EncryptionBlobEncrypted), data, 0o600); err != nil {
		return fmt.Errorf("write blob of %s: %w", r.ID, err)
	}
	return nil
}

func (s *resourceStore) Read(ctx context.Context, r *models.Resource) ([]byte, error) {
	data, err := os.ReadFile(s.FullPath(r, r.EncryptionBlobEncrypted))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob of %s: %w", r.ID, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob of %s: %w", r.ID, err)
	}
	return data, nil
}

func (s *resourceStore) Delete(ctx context.Context, ids []string, opts DeleteOptions) error {
	var errs []error
	for _, id := range ids {
		if err := s.deleteOne(ctx, id, opts); err != nil {
			s.log.Warn(ctx, "resource delete failed", "id", id, "error", err)
			errs = append(errs, fmt.Errorf("resource %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *resourceStore) deleteOne(ctx context.Context, id string, opts DeleteOptions) error {
	it, err := s.items.Load(ctx, models.TypeResource, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	r := it.(*models.Resource)

	if err := filex.RemoveIfExists(s.FullPath(r, false)); err != nil {
		return err
	}
	if err := filex.RemoveIfExists(s.FullPath(r, true)); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, models.TypeResource, []string{id}, opts); err != nil {
		return err
	}
	return s.linkRepo().DeleteByResource(ctx, id)
}

func detectMime(path string) (mimeType, ext string, err error) {
	ext = unsafeExtChars.ReplaceAllString(strings.TrimPrefix(filepath.Ext(path), "."), "")
	if ext != "" {
		if t := mime.TypeByExtension("." + strings.ToLower(ext)); t != "" {
			if mt, _, perr := mime.ParseMediaType(t); perr == nil {
				return mt, ext, nil
			}
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", err
	}
	sniffed := http.DetectContentType(head[:n])
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, extensionForMime(sniffed), nil
	}
	return "application/octet-stream", ext, nil
}

func (s *resourceStore) CreateFromPath(ctx context.Context, path string) (*models.Resource, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if st.Size() >= MaxResourceSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", path, st.Size(), common.ErrTooLarge)
	}

	mimeType, ext, err := detectMime(path)
	if err != nil {
		return nil, err
	}

	r := &models.Resource{
		BaseItem:      models.BaseItem{ID: common.NewID(), Title: filepath.Base(path)},
		Mime:          mimeType,
		Filename:      filepath.Base(path),
		FileExtension: ext,
	}

	if _, err := filex.EnsureDir(s.dir); err != nil {
		return nil, err
	}
	target := s.FullPath(r, false)
	if err := filex.CopyFile(path, target); err != nil {
		return nil, err
	}
	if _, err := s.items.Save(ctx, r, SaveOptions{IsNew: true}); err != nil {
		_ = filex.RemoveIfExists(target)
		return nil, err
	}

	s.log.Info(ctx, "resource created", "id", r.ID, "mime", r.Mime, "size", st.Size())
	return r, nil
}

func (s *resourceStore) AttachFileToNote(ctx context.Context, note *models.Note, path string, position int) (*models.Note, error) {
	if note.EncryptionApplied {
		return nil, fmt.Errorf("attach to note %s: %w", note.ID, common.ErrImmutableEncrypted)
	}

	r, err := s.CreateFromPath(ctx, path)
	if err != nil {
		return nil, err
	}

	body := note.Body
	if position < 0 || position > len(body) {
		position = len(body)
	}
	// never split a multi-byte character
	for position > 0 && position < len(body) && !utf8.RuneStart(body[position]) {
		position--
	}

	var parts []string
	if head := body[:position]; head != "" {
		parts = append(parts, head)
	}
	parts = append(parts, models.MarkdownTag(r))
	if tail := body[position:]; tail != "" {
		parts = append(parts, tail)
	}
	note.Body = strings.Join(parts, "\n\n")

	if _, err := s.items.Save(ctx, note, SaveOptions{UserSideValidation: true}); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *resourceStore) EncryptedBlob(ctx context.Context, r *models.Resource) ([]byte, error) {
	if r.EncryptionBlobEncrypted {
		return s.Read(ctx, r)
	}
	data, err := s.Read(ctx, r)
	if err != nil {
		return nil, err
	}
	return s.enc.EncryptBytes(ctx, data)
}

func (s *resourceStore) DecryptBlob(ctx context.Context, r *models.Resource) (*models.Resource, error) {
	if !r.EncryptionBlobEncrypted {
		return nil, fmt.Errorf("blob of %s: %w", r.ID, common.ErrNotEncrypted)
	}
	if r.EncryptionApplied {
		return nil, fmt.Errorf("blob of %s: resource metadata must be decrypted first", r.ID)
	}

	sealed, err := s.Read(ctx, r)
	if err != nil {
		return nil, err
	}
	plain, err := s.enc.DecryptBytes(ctx, sealed)
	if err != nil {
		return nil, err
	}

	cryptedPath := s.FullPath(r, true)
	r.EncryptionBlobEncrypted = false
	if err := s.Write(ctx, r, plain); err != nil {
		r.EncryptionBlobEncrypted = true
		return nil, err
	}
	if _, err := s.items.Save(ctx, r, SaveOptions{PreserveTimestamps: true}); err != nil {
		return nil, err
	}
	if err := filex.RemoveIfExists(cryptedPath); err != nil {
		s.log.Warn(ctx, "could not remove encrypted blob", "path", cryptedPath, "error", err)
	}
	return r, nil
}
