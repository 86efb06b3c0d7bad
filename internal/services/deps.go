// Package services implements the resource controllers: business rules,
// ownership checks and the upload lifecycle for every content type.
package services

import (
	"context"

	"github.com/univdept/backend/internal/media"
	"github.com/univdept/backend/internal/storage"
	"go.uber.org/zap"
)

// Remote media store folders, one per content type
const (
	newsFolder    = "news"
	galleryFolder = "gallery"
	projectFolder = "projects"
	programFolder = "programs"
)

// MediaStore defines the interface for remote media store operations
type MediaStore interface {
	Upload(ctx context.Context, localPath, folder string) (*media.Object, error)
	Remove(ctx context.Context, publicID string) error
	RemoveMany(ctx context.Context, publicIDs []string) media.BatchResult
}

// Discarder defines the interface for staged file cleanup
type Discarder interface {
	Discard(files ...*storage.StagedFile)
}

// removeOrphans is the compensating cleanup after a persistence failure:
// objects already uploaded in the failed request are removed best-effort so
// they do not accumulate in the remote store. Failures are logged only; the
// original persistence error is what the caller reports.
func removeOrphans(ctx context.Context, store MediaStore, logger *zap.Logger, publicIDs ...string) {
	for _, id := range publicIDs {
		if id == "" {
			continue
		}
		if err := store.Remove(ctx, id); err != nil {
			logger.Warn("failed to remove orphaned remote object",
				zap.String("public_id", id),
				zap.Error(err),
			)
		}
	}
}

// removeReplaced removes the remote object displaced by a successful image
// replacement. Failure leaves an orphan in the remote store and is logged,
// never surfaced: the new reference is already the source of truth.
func removeReplaced(ctx context.Context, store MediaStore, logger *zap.Logger, publicID string) {
	if publicID == "" {
		return
	}
	if err := store.Remove(ctx, publicID); err != nil {
		logger.Warn("failed to remove replaced remote object",
			zap.String("public_id", publicID),
			zap.Error(err),
		)
	}
}
