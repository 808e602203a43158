package client

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophnotes/internal/client/config"
	"github.com/dmitrijs2005/gophnotes/internal/client/registry"
	"github.com/dmitrijs2005/gophnotes/internal/client/services"
	"github.com/dmitrijs2005/gophnotes/internal/client/synctarget"
	"github.com/dmitrijs2005/gophnotes/internal/filex"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// Engine is the set of services bound to one profile database.
type Engine struct {
	Config   *config.Config
	DB       *sql.DB
	Registry *registry.Registry
	Log      logging.Logger

	Tracker      services.SyncTracker
	Items        services.ItemService
	Keys         services.MasterKeyService
	Encryption   services.EncryptionService
	Resources    services.ResourceStore
	Importer     *services.Importer
	Exporter     *services.Exporter
	Decryption   *services.DecryptionWorker
	Synchronizer *services.Synchronizer

	mu      sync.Mutex
	targets map[int]synctarget.Target
	closed  bool
}

// Open prepares the profile directories, opens the database and wires the
// services.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (*Engine, error) {
	if log == nil {
		log = logging.Nop()
	}

	for _, dir := range []string{cfg.ProfileDir, cfg.ResourceDir} {
		if _, err := filex.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	reg, err := registry.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to build item registry: %w", err)
	}

	db, err := InitDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	e := &Engine{
		Config:   cfg,
		DB:       db,
		Registry: reg,
		Log:      log,
		targets:  make(map[int]synctarget.Target),
	}
	e.Tracker = services.NewSyncTracker(db, reg, cfg.TargetIDs(), log.With("component", "tracker"))
	e.Items = services.NewItemService(db, reg, e.Tracker, log.With("component", "items"))
	e.Keys = services.NewMasterKeyService(db, e.Items, log.With("component", "masterkeys"))
	e.Encryption = services.NewEncryptionService(db, reg, e.Items, e.Keys, log.With("component", "encryption"))
	e.Resources = services.NewResourceStore(db, cfg.ResourceDir, e.Items, e.Encryption, log.With("component", "resources"))
	e.Importer = services.NewImporter(reg, e.Items, e.Resources, log.With("component", "import"))
	e.Exporter = services.NewExporter(reg, e.Items, e.Resources, log.With("component", "export"))
	e.Decryption = services.NewDecryptionWorker(e.Encryption, e.Resources, cfg.DecryptionBatchSize, log.With("component", "decryption"))
	e.Synchronizer = services.NewSynchronizer(db, reg, e.Items, e.Tracker, e.Encryption, e.Keys, e.Resources,
		log.With("component", "sync"))

	log.Debug(ctx, "engine opened", "database", cfg.DatabaseDSN, "targets", cfg.TargetIDs())
	return e, nil
}

// Target returns the sync target configured under id. Targets are built once
// per engine, so a memory target keeps its content between passes.
func (e *Engine) Target(ctx context.Context, id int) (synctarget.Target, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if tg, ok := e.targets[id]; ok {
		return tg, nil
	}

	tc, ok := e.Config.Target(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTarget, id)
	}

	tg, err := newTarget(ctx, tc)
	if err != nil {
		return nil, fmt.Errorf("failed to open sync target %d: %w", id, err)
	}
	e.targets[id] = tg
	return tg, nil
}

func newTarget(ctx context.Context, tc config.TargetConfig) (synctarget.Target, error) {
	switch tc.Kind {
	case config.TargetMemory:
		return synctarget.NewMemory(), nil
	case config.TargetFilesystem:
		fs, err := synctarget.NewFilesystem(tc.Path)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.TargetS3:
		s3, err := synctarget.NewS3(ctx, synctarget.S3Config{
			Bucket:       tc.Bucket,
			Prefix:       tc.Prefix,
			Region:       tc.Region,
			Endpoint:     tc.Endpoint,
			AccessKey:    tc.AccessKey,
			SecretKey:    tc.SecretKey,
			UsePathStyle: tc.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", tc.Kind)
	}
}

// Sync runs one pass against the target configured under id.
func (e *Engine) Sync(ctx context.Context, id int) (*services.SyncReport, error) {
	tg, err := e.Target(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.Synchronizer.Sync(ctx, id, tg)
}

// Close wipes unlocked master keys and closes the database. It is safe to
// call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.Keys.Unload()
	return e.DB.Close()
}
