package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmkolesov/snaprate/internal/models"
)

// PhotoStore persists photo records in PostgreSQL.
type PhotoStore struct {
	db *DB
}

// NewPhotoStore creates a new photo store.
func NewPhotoStore(db *DB) *PhotoStore {
	return &PhotoStore{db: db}
}

// CreatePhotoParams holds the fields required to create a photo record.
// ID is assigned by the caller so object keys and URLs can be derived
// before the row exists.
type CreatePhotoParams struct {
	ID           string
	OwnerID      string
	ObjectKey    string
	URL          string
	ThumbnailURL string
	ContentType  string
}

const photoColumns = `id, owner_id, object_key, url, thumbnail_url, content_type, rating_count, rating_sum, status, created_at, updated_at`

// Create inserts a new photo record with zeroed aggregates and bumps the
// owner's upload counter in the same transaction.
func (s *PhotoStore) Create(ctx context.Context, params CreatePhotoParams) (*models.Photo, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("photo id is required")
	}
	if params.OwnerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if params.URL == "" {
		return nil, fmt.Errorf("photo url is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create photo: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO photos (id, owner_id, object_key, url, thumbnail_url, content_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + photoColumns

	row := tx.QueryRowContext(
		ctx,
		query,
		params.ID,
		params.OwnerID,
		nullString(params.ObjectKey),
		params.URL,
		nullString(params.ThumbnailURL),
		params.ContentType,
		string(models.PhotoStatusActive),
	)

	photo, err := scanPhoto(row)
	if err != nil {
		return nil, fmt.Errorf("create photo: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET photos_uploaded = photos_uploaded + 1 WHERE id = $1`, params.OwnerID); err != nil {
		return nil, fmt.Errorf("bump upload counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create photo: %w", err)
	}

	return photo, nil
}

// GetByID retrieves a photo by ID. Returns nil when not found.
func (s *PhotoStore) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`

	photo, err := scanPhoto(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}

	return photo, nil
}

// PickUnrated returns one active photo the rater has neither uploaded nor
// rated, chosen uniformly at random. Returns nil when no candidate remains.
func (s *PhotoStore) PickUnrated(ctx context.Context, raterID string) (*models.Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos p
		WHERE p.status = $1
		  AND p.owner_id <> $2
		  AND NOT EXISTS (
			SELECT 1 FROM ratings r WHERE r.photo_id = p.id AND r.rater_id = $2
		  )
		ORDER BY random()
		LIMIT 1
	`

	photo, err := scanPhoto(s.db.QueryRowContext(ctx, query, string(models.PhotoStatusActive), raterID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pick unrated photo: %w", err)
	}

	return photo, nil
}

// PickRandom returns any active photo at random. Returns nil when the pool
// is empty.
func (s *PhotoStore) PickRandom(ctx context.Context) (*models.Photo, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE status = $1
		ORDER BY random()
		LIMIT 1
	`

	photo, err := scanPhoto(s.db.QueryRowContext(ctx, query, string(models.PhotoStatusActive)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pick random photo: %w", err)
	}

	return photo, nil
}

// SetStatus flips the lifecycle flag; removed photos drop out of selection
// but are never deleted.
func (s *PhotoStore) SetStatus(ctx context.Context, id string, status models.PhotoStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE photos SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("set photo status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set photo status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("photo %s not found", id)
	}

	return nil
}

// CountByOwner returns how many photos a user has uploaded.
func (s *PhotoStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count photos by owner: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPhoto(row rowScanner) (*models.Photo, error) {
	var photo models.Photo
	var status string
	var objectKey, thumbnailURL sql.NullString

	err := row.Scan(
		&photo.ID,
		&photo.OwnerID,
		&objectKey,
		&photo.URL,
		&thumbnailURL,
		&photo.ContentType,
		&photo.RatingCount,
		&photo.RatingSum,
		&status,
		&photo.CreatedAt,
		&photo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	photo.Status = models.PhotoStatus(status)
	if objectKey.Valid {
		photo.ObjectKey = objectKey.String
	}
	if thumbnailURL.Valid {
		photo.ThumbnailURL = thumbnailURL.String
	}
	photo.AverageRating = photo.Average()

	return &photo, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
