package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/cryptox"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// MasterKeyService manages master keys: random data keys stored wrapped by a
// password-derived key, and the set of keys unlocked in this process.
type MasterKeyService interface {
	// Generate creates and stores a new master key protected by password.
	// The key is unlocked, and becomes active when no key is active yet.
	Generate(ctx context.Context, password []byte) (*models.MasterKey, error)

	// Load unlocks a stored master key and makes it the active one.
	Load(ctx context.Context, id string, password []byte) error

	SetActive(ctx context.Context, id string) error

	// ActiveID returns "" when no key was ever activated.
	ActiveID(ctx context.Context) (string, error)

	// Key returns the unlocked data key of id.
	Key(id string) ([]byte, error)

	// Unload wipes every unlocked key from memory.
	Unload()
}

type masterKeyService struct {
	db    *sql.DB
	items ItemService
	log   logging.Logger

	mu   sync.RWMutex
	keys map[string][]byte
}

func NewMasterKeyService(db *sql.DB, items ItemService, log logging.Logger) MasterKeyService {
	return &masterKeyService{db: db, items: items, log: log, keys: make(map[string][]byte)}
}

func (s *masterKeyService) metadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

func (s *masterKeyService) Generate(ctx context.Context, password []byte) (*models.MasterKey, error) {
	dataKey := cryptox.NewDataKey()

	content, err := cryptox.WrapKey(dataKey, password)
	if err != nil {
		common.WipeByteArray(dataKey)
		return nil, fmt.Errorf("wrap master key: %w", err)
	}

	mk := &models.MasterKey{
		SourceApplication: common.SourceApplication,
		EncryptionMethod:  cryptox.MethodAESGCM,
		Checksum:          hex.EncodeToString(cryptox.MakeVerifier(dataKey)),
		Content:           content,
	}
	if _, err := s.items.Save(ctx, mk, SaveOptions{IsNew: true}); err != nil {
		common.WipeByteArray(dataKey)
		return nil, err
	}

	s.mu.Lock()
	s.keys[mk.ID] = dataKey
	s.mu.Unlock()

	active, err := s.ActiveID(ctx)
	if err != nil {
		return nil, err
	}
	if active == "" {
		if err := s.SetActive(ctx, mk.ID); err != nil {
			return nil, err
		}
	}

	s.log.Info(ctx, "master key generated", "id", mk.ID)
	return mk, nil
}

func (s *masterKeyService) Load(ctx context.Context, id string, password []byte) error {
	it, err := s.items.Load(ctx, models.TypeMasterKey, id)
	if err != nil {
		return err
	}
	mk := it.(*models.MasterKey)

	dataKey, err := cryptox.UnwrapKey(mk.Content, password)
	if err != nil {
		return err
	}
	want, err := hex.DecodeString(mk.Checksum)
	if err != nil || subtle.ConstantTimeCompare(want, cryptox.MakeVerifier(dataKey)) != 1 {
		common.WipeByteArray(dataKey)
		return fmt.Errorf("master key %s: checksum mismatch: %w", id, common.ErrInvalidPassword)
	}

	s.mu.Lock()
	if old, ok := s.keys[id]; ok {
		common.WipeByteArray(old)
	}
	s.keys[id] = dataKey
	s.mu.Unlock()

	return s.SetActive(ctx, id)
}

func (s *masterKeyService) SetActive(ctx context.Context, id string) error {
	return metadata.SetString(ctx, s.metadataRepo(), common.MetadataActiveMasterKey, id)
}

func (s *masterKeyService) ActiveID(ctx context.Context) (string, error) {
	return metadata.GetString(ctx, s.metadataRepo(), common.MetadataActiveMasterKey)
}

func (s *masterKeyService) Key(id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, common.ErrMasterKeyNotLoaded)
	}
	return k, nil
}

func (s *masterKeyService) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, k := range s.keys {
		common.WipeByteArray(k)
		delete(s.keys, id)
	}
}
