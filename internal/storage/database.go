package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmkolesov/snaprate/internal/database"
	"github.com/dmkolesov/snaprate/internal/models"
	"github.com/dmkolesov/snaprate/internal/photos"
)

// DBStorage keeps photo bytes in PostgreSQL. It is the default backend when
// no object store endpoint is configured; the server then serves the bytes
// itself from /photos/{id}.
type DBStorage struct {
	assets        *database.ImageAssetStore
	publicBaseURL string
}

// NewDBStorage creates the database-backed storage.
func NewDBStorage(assets *database.ImageAssetStore, publicBaseURL string) *DBStorage {
	if publicBaseURL == "" {
		publicBaseURL = "/photos"
	}
	return &DBStorage{
		assets:        assets,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Save stores one photo rendition.
func (s *DBStorage) Save(ctx context.Context, req photos.SaveRequest) (*models.ImageAsset, error) {
	return s.assets.Save(ctx, database.SaveAssetParams{
		PhotoID:                 req.PhotoID,
		Variant:                 req.Variant,
		ContentType:             req.ContentType,
		ImageBytes:              req.ImageBytes,
		ModerationLabels:        req.ModerationLabels,
		ModerationMaxConfidence: req.ModerationMaxConfidence,
	})
}

// Load fetches one photo rendition. Returns nil when not found.
func (s *DBStorage) Load(ctx context.Context, photoID string, variant models.ImageVariant) (*models.ImageAsset, error) {
	return s.assets.Load(ctx, photoID, variant)
}

// Delete removes every rendition stored for a photo.
func (s *DBStorage) Delete(ctx context.Context, photoID string) error {
	return s.assets.Delete(ctx, photoID)
}

// URL returns the server-relative URL the photo API serves bytes from.
func (s *DBStorage) URL(photoID string, variant models.ImageVariant) string {
	if variant == models.ImageVariantThumbnail {
		return fmt.Sprintf("%s/%s/thumbnail", s.publicBaseURL, photoID)
	}
	return fmt.Sprintf("%s/%s", s.publicBaseURL, photoID)
}
