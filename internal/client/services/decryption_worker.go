package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

const DefaultDecryptionBatchSize = 10

type DecryptionReport struct {
	Decrypted int
	Warnings  []string
}

// DecryptionWorker drains the decryption backlog in bounded batches. Items
// that fail are reported and skipped for the rest of the run, so a run
// always terminates. Running it again resumes with whatever is left.
type DecryptionWorker struct {
	enc       EncryptionService
	resources ResourceStore
	batchSize int
	log       logging.Logger
}

func NewDecryptionWorker(enc EncryptionService, resources ResourceStore, batchSize int, log logging.Logger) *DecryptionWorker {
	if batchSize <= 0 {
		batchSize = DefaultDecryptionBatchSize
	}
	return &DecryptionWorker{enc: enc, resources: resources, batchSize: batchSize, log: log}
}

func (w *DecryptionWorker) Run(ctx context.Context) (DecryptionReport, error) {
	var report DecryptionReport
	var excluded []string

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		batch, err := w.enc.ItemsThatNeedDecryption(ctx, excluded, w.batchSize)
		if err != nil {
			return report, err
		}

		for _, it := range batch.Items {
			if err := w.decryptOne(ctx, it); err != nil {
				w.log.Warn(ctx, "could not decrypt item", "type", it.Type().String(), "id", it.Base().ID, "error", err)
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s %s: %v", it.Type(), it.Base().ID, err))
				excluded = append(excluded, it.Base().ID)
				continue
			}
			report.Decrypted++
		}

		if !batch.HasMore {
			break
		}
	}

	w.log.Info(ctx, "decryption pass finished", "decrypted", report.Decrypted, "warnings", len(report.Warnings))
	return report, nil
}

func (w *DecryptionWorker) decryptOne(ctx context.Context, it models.Item) error {
	if it.Base().EncryptionApplied {
		var err error
		if it, err = w.enc.Decrypt(ctx, it); err != nil {
			return err
		}
	}
	if r, ok := it.(*models.Resource); ok && r.EncryptionBlobEncrypted {
		if _, err := w.resources.DecryptBlob(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
