package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmkolesov/snaprate/internal/models"
)

// ImageAssetStore keeps photo bytes in PostgreSQL. It is the fallback
// storage backend used when no object store is configured.
type ImageAssetStore struct {
	db *DB
}

// NewImageAssetStore creates a new image asset store.
func NewImageAssetStore(db *DB) *ImageAssetStore {
	return &ImageAssetStore{db: db}
}

// SaveAssetParams holds one rendition of a photo to persist.
type SaveAssetParams struct {
	PhotoID                 string
	Variant                 models.ImageVariant
	ContentType             string
	ImageBytes              []byte
	ModerationLabels        []models.ModerationLabel
	ModerationMaxConfidence float64
}

// Save stores image bytes and moderation metadata for one photo rendition.
func (s *ImageAssetStore) Save(ctx context.Context, params SaveAssetParams) (*models.ImageAsset, error) {
	if len(params.ImageBytes) == 0 {
		return nil, fmt.Errorf("image bytes are required")
	}
	if params.PhotoID == "" {
		return nil, fmt.Errorf("photo id is required")
	}
	if params.Variant == "" {
		params.Variant = models.ImageVariantOriginal
	}

	labelsJSON, err := json.Marshal(params.ModerationLabels)
	if err != nil {
		return nil, fmt.Errorf("marshal moderation labels: %w", err)
	}

	query := `
		INSERT INTO image_assets (photo_id, variant, content_type, image_bytes, moderation_labels, moderation_max_confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (photo_id, variant) DO UPDATE
		SET content_type = EXCLUDED.content_type,
		    image_bytes = EXCLUDED.image_bytes,
		    moderation_labels = EXCLUDED.moderation_labels,
		    moderation_max_confidence = EXCLUDED.moderation_max_confidence,
		    updated_at = NOW()
		RETURNING id, photo_id, variant, content_type, image_bytes, moderation_labels, moderation_max_confidence, created_at, updated_at
	`

	var asset models.ImageAsset
	var variant string
	err = s.db.QueryRowContext(
		ctx,
		query,
		params.PhotoID,
		string(params.Variant),
		params.ContentType,
		params.ImageBytes,
		labelsJSON,
		params.ModerationMaxConfidence,
	).Scan(
		&asset.ID,
		&asset.PhotoID,
		&variant,
		&asset.ContentType,
		&asset.ImageBytes,
		&asset.ModerationLabels,
		&asset.ModerationMaxConfidence,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("save image asset: %w", err)
	}
	asset.Variant = models.ImageVariant(variant)

	return &asset, nil
}

// Load retrieves one rendition of a photo. Returns nil when not found.
func (s *ImageAssetStore) Load(ctx context.Context, photoID string, variant models.ImageVariant) (*models.ImageAsset, error) {
	query := `
		SELECT id, photo_id, variant, content_type, image_bytes, moderation_labels, moderation_max_confidence, created_at, updated_at
		FROM image_assets
		WHERE photo_id = $1 AND variant = $2
	`

	var asset models.ImageAsset
	var scanVariant string
	err := s.db.QueryRowContext(ctx, query, photoID, string(variant)).Scan(
		&asset.ID,
		&asset.PhotoID,
		&scanVariant,
		&asset.ContentType,
		&asset.ImageBytes,
		&asset.ModerationLabels,
		&asset.ModerationMaxConfidence,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load image asset: %w", err)
	}

	asset.Variant = models.ImageVariant(scanVariant)
	return &asset, nil
}

// Delete removes every rendition stored for a photo.
func (s *ImageAssetStore) Delete(ctx context.Context, photoID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM image_assets WHERE photo_id = $1`, photoID)
	if err != nil {
		return fmt.Errorf("delete image assets: %w", err)
	}
	return nil
}
