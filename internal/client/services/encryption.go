package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/registry"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/items"
	"github.com/dmitrijs2005/gophnotes/internal/client/serializer"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/cryptox"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// cipherHeader prefixes every cipher text written by this engine. It is
// followed by the 32 character id of the master key used.
const cipherHeader = "GN01"

type EncryptionStats struct {
	Encrypted int
	Total     int
}

// DecryptionBatch is one bounded page of the decryption backlog.
type DecryptionBatch struct {
	Items   []models.Item
	HasMore bool
}

// EncryptionService encrypts items for sync targets and turns encrypted
// items received from them back into plain local items.
type EncryptionService interface {
	// Decrypt restores the plain item from its cipher text and saves it
	// without touching updated_time. Items without cipher text fail with
	// common.ErrNotEncrypted.
	Decrypt(ctx context.Context, it models.Item) (models.Item, error)

	// EncryptItem returns the wire form of it: the serialized plain item
	// sealed with the active master key, with only id, parent_id and
	// updated_time left readable. Master keys are returned unchanged.
	EncryptItem(ctx context.Context, it models.Item) (models.Item, error)

	EncryptString(ctx context.Context, plain string) (string, error)
	DecryptString(ctx context.Context, cipherText string) (string, error)
	EncryptBytes(ctx context.Context, plain []byte) ([]byte, error)
	DecryptBytes(ctx context.Context, sealed []byte) ([]byte, error)

	EncryptedCount(ctx context.Context) (int, error)
	TotalCount(ctx context.Context) (int, error)
	HasEncryptedItems(ctx context.Context) (bool, error)
	Stats(ctx context.Context) (EncryptionStats, error)

	// ItemsThatNeedDecryption visits the encryptable variants in priority
	// order and returns as soon as one yields items. HasMore is true in that
	// case, except for the last variant where it is true only when the batch
	// is full.
	ItemsThatNeedDecryption(ctx context.Context, exclude []string, limit int) (DecryptionBatch, error)
}

type encryptionService struct {
	db    *sql.DB
	reg   *registry.Registry
	ser   *serializer.Serializer
	items ItemService
	keys  MasterKeyService
	log   logging.Logger
}

func NewEncryptionService(db *sql.DB, reg *registry.Registry, items ItemService, keys MasterKeyService, log logging.Logger) EncryptionService {
	return &encryptionService{
		db:    db,
		reg:   reg,
		ser:   serializer.New(reg),
		items: items,
		keys:  keys,
		log:   log,
	}
}

func (s *encryptionService) itemRepo() items.Repository {
	return items.NewSQLiteRepository(s.db, s.reg)
}

func (s *encryptionService) activeKey(ctx context.Context) (string, []byte, error) {
	id, err := s.keys.ActiveID(ctx)
	if err != nil {
		return "", nil, err
	}
	if id == "" {
		return "", nil, common.ErrNoActiveMasterKey
	}
	key, err := s.keys.Key(id)
	if err != nil {
		return "", nil, err
	}
	return id, key, nil
}

func (s *encryptionService) EncryptString(ctx context.Context, plain string) (string, error) {
	id, key, err := s.activeKey(ctx)
	if err != nil {
		return "", err
	}
	sealed, err := cryptox.Seal([]byte(plain), key)
	if err != nil {
		return "", err
	}
	return cipherHeader + id + base64.StdEncoding.EncodeToString(sealed), nil
}

func splitHeader(s string) (keyID string, rest string, err error) {
	if !strings.HasPrefix(s, cipherHeader) || len(s) < len(cipherHeader)+common.IDLength {
		return "", "", common.ErrInvalidCipherFormat
	}
	s = s[len(cipherHeader):]
	return s[:common.IDLength], s[common.IDLength:], nil
}

func (s *encryptionService) DecryptString(ctx context.Context, cipherText string) (string, error) {
	id, rest, err := splitHeader(cipherText)
	if err != nil {
		return "", err
	}
	key, err := s.keys.Key(id)
	if err != nil {
		return "", err
	}
	sealed, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidCipherFormat, err)
	}
	plain, err := cryptox.Open(sealed, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidCipherFormat, err)
	}
	return string(plain), nil
}

func (s *encryptionService) EncryptBytes(ctx context.Context, plain []byte) ([]byte, error) {
	id, key, err := s.activeKey(ctx)
	if err != nil {
		return nil, err
	}
	sealed, err := cryptox.Seal(plain, key)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(cipherHeader) + len(id) + len(sealed))
	buf.WriteString(cipherHeader)
	buf.WriteString(id)
	buf.Write(sealed)
	return buf.Bytes(), nil
}

func (s *encryptionService) DecryptBytes(ctx context.Context, data []byte) ([]byte, error) {
	n := len(cipherHeader) + common.IDLength
	if len(data) < n {
		return nil, common.ErrInvalidCipherFormat
	}
	id, _, err := splitHeader(string(data[:n]))
	if err != nil {
		return nil, err
	}
	key, err := s.keys.Key(id)
	if err != nil {
		return nil, err
	}
	plain, err := cryptox.Open(data[n:], key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidCipherFormat, err)
	}
	return plain, nil
}

func (s *encryptionService) Decrypt(ctx context.Context, it models.Item) (models.Item, error) {
	b := it.Base()
	if b.EncryptionCipherText == "" {
		return nil, fmt.Errorf("%s %s: %w", it.Type(), b.ID, common.ErrNotEncrypted)
	}

	plain, err := s.DecryptString(ctx, b.EncryptionCipherText)
	if err != nil {
		return nil, err
	}
	out, err := s.ser.Deserialize(plain)
	if err != nil {
		return nil, err
	}
	if out.Type() != it.Type() || out.Base().ID != b.ID {
		return nil, fmt.Errorf("decrypted %s %s does not match %s %s: %w",
			out.Type(), out.Base().ID, it.Type(), b.ID, common.ErrInvalidCipherFormat)
	}

	ob := out.Base()
	ob.UpdatedTime = b.UpdatedTime
	ob.EncryptionCipherText = ""
	ob.EncryptionApplied = false
	if r, ok := it.(*models.Resource); ok {
		out.(*models.Resource).EncryptionBlobEncrypted = r.EncryptionBlobEncrypted
	}

	saved, err := s.items.Save(ctx, out, SaveOptions{PreserveTimestamps: true})
	if err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "item decrypted", "type", it.Type().String(), "id", b.ID)
	return saved, nil
}

func (s *encryptionService) EncryptItem(ctx context.Context, it models.Item) (models.Item, error) {
	if it.Type() == models.TypeMasterKey || it.Base().EncryptionApplied {
		return it, nil
	}

	plain, err := s.ser.Serialize(ctx, it)
	if err != nil {
		return nil, err
	}
	ct, err := s.EncryptString(ctx, plain)
	if err != nil {
		return nil, err
	}

	h, err := s.reg.Resolve(it.Type())
	if err != nil {
		return nil, err
	}
	out := h.New()
	ob := out.Base()
	ob.ID = it.Base().ID
	ob.UpdatedTime = it.Base().UpdatedTime
	ob.EncryptionApplied = true
	ob.EncryptionCipherText = ct
	if p := models.ParentID(it); p != "" {
		if err := out.Assign(models.FieldParentID, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *encryptionService) EncryptedCount(ctx context.Context) (int, error) {
	st, err := s.Stats(ctx)
	return st.Encrypted, err
}

func (s *encryptionService) TotalCount(ctx context.Context) (int, error) {
	st, err := s.Stats(ctx)
	return st.Total, err
}

func (s *encryptionService) HasEncryptedItems(ctx context.Context) (bool, error) {
	r := s.itemRepo()
	for _, t := range s.reg.EncryptableTypes() {
		n, err := r.EncryptedCount(ctx, t)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *encryptionService) Stats(ctx context.Context) (EncryptionStats, error) {
	r := s.itemRepo()
	var st EncryptionStats
	for _, t := range s.reg.EncryptableTypes() {
		enc, err := r.EncryptedCount(ctx, t)
		if err != nil {
			return EncryptionStats{}, err
		}
		total, err := r.Count(ctx, t)
		if err != nil {
			return EncryptionStats{}, err
		}
		st.Encrypted += enc
		st.Total += total
	}
	return st, nil
}

func (s *encryptionService) ItemsThatNeedDecryption(ctx context.Context, exclude []string, limit int) (DecryptionBatch, error) {
	r := s.itemRepo()
	types := s.reg.EncryptableTypes()
	for i, t := range types {
		batch, err := r.NeedDecryption(ctx, t, exclude, limit)
		if err != nil {
			return DecryptionBatch{}, err
		}
		if i == len(types)-1 {
			return DecryptionBatch{Items: batch, HasMore: len(batch) >= limit}, nil
		}
		if len(batch) > 0 {
			return DecryptionBatch{Items: batch, HasMore: true}, nil
		}
	}
	return DecryptionBatch{}, nil
}
