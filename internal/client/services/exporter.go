package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/registry"
	"github.com/dmitrijs2005/gophnotes/internal/client/serializer"
	"github.com/dmitrijs2005/gophnotes/internal/filex"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

type ExportResult struct {
	Warnings []string
	Counts   map[models.ItemType]int
}

// Exporter writes the raw directory layout read by Importer.
type Exporter struct {
	reg       *registry.Registry
	ser       *serializer.Serializer
	items     ItemService
	resources ResourceStore
	log       logging.Logger
}

func NewExporter(reg *registry.Registry, items ItemService, resources ResourceStore, log logging.Logger) *Exporter {
	return &Exporter{reg: reg, ser: serializer.New(reg), items: items, resources: resources, log: log}
}

func (e *Exporter) Export(ctx context.Context, destPath string) (*ExportResult, error) {
	if _, err := filex.EnsureDir(destPath); err != nil {
		return nil, err
	}
	resDir := filepath.Join(destPath, resourcesDirName)

	result := &ExportResult{Counts: make(map[models.ItemType]int)}
	for _, t := range e.reg.Types() {
		list, err := e.items.List(ctx, t)
		if err != nil {
			return result, err
		}

		for _, it := range list {
			if err := e.exportItem(ctx, destPath, resDir, it); err != nil {
				e.log.Warn(ctx, "item not exported", "id", it.Base().ID, "error", err)
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s %s: %v", it.Type(), it.Base().ID, err))
				continue
			}
			result.Counts[t]++
		}
	}

	e.log.Info(ctx, "export finished", "path", destPath, "warnings", len(result.Warnings))
	return result, nil
}

func (e *Exporter) exportItem(ctx context.Context, destPath, resDir string, it models.Item) error {
	text, err := e.ser.Serialize(ctx, it)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(destPath, models.SystemPath(it.Base().ID)), []byte(text), 0o600); err != nil {
		return err
	}

	r, ok := it.(*models.Resource)
	if !ok {
		return nil
	}
	src := e.resources.FullPath(r, r.EncryptionBlobEncrypted)
	if !filex.Exists(src) {
		return fmt.Errorf("blob %s is missing", filepath.Base(src))
	}
	return filex.CopyFile(src, filepath.Join(resDir, filepath.Base(src)))
}
