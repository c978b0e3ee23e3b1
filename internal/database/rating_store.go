package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/dmkolesov/snaprate/internal/models"
)

// ErrDuplicateRating is returned when a rater votes on the same photo twice.
var ErrDuplicateRating = errors.New("rating already recorded for this photo and rater")

// RatingStore persists rating events and keeps photo aggregates in step.
type RatingStore struct {
	db *DB
}

// NewRatingStore creates a new rating store.
func NewRatingStore(db *DB) *RatingStore {
	return &RatingStore{db: db}
}

// Insert records a rating and atomically updates the photo's aggregates and
// the rater's counter. The (photo, rater) unique constraint enforces one
// vote per pair.
func (s *RatingStore) Insert(ctx context.Context, photoID, raterID string, value int) (*models.Rating, error) {
	if !models.ValidRatingValue(value) {
		return nil, fmt.Errorf("rating value %d out of range", value)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert rating: %w", err)
	}
	defer tx.Rollback()

	var rating models.Rating
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ratings (photo_id, rater_id, value)
		VALUES ($1, $2, $3)
		RETURNING id, photo_id, rater_id, value, created_at
	`, photoID, raterID, value).Scan(
		&rating.ID,
		&rating.PhotoID,
		&rating.RaterID,
		&rating.Value,
		&rating.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateRating
		}
		return nil, fmt.Errorf("insert rating: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE photos
		SET rating_count = rating_count + 1,
		    rating_sum = rating_sum + $1,
		    updated_at = NOW()
		WHERE id = $2
	`, value, photoID); err != nil {
		return nil, fmt.Errorf("update photo aggregates: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET ratings_given = ratings_given + 1 WHERE id = $1
	`, raterID); err != nil {
		return nil, fmt.Errorf("bump rating counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert rating: %w", err)
	}

	return &rating, nil
}

// ListRatedPhotoIDs returns every photo id the rater has voted on.
func (s *RatingStore) ListRatedPhotoIDs(ctx context.Context, raterID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT photo_id FROM ratings WHERE rater_id = $1`, raterID)
	if err != nil {
		return nil, fmt.Errorf("list rated photo ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan rated photo id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rated photo ids: %w", err)
	}

	return ids, nil
}

// HasRated reports whether the rater already voted on the photo.
func (s *RatingStore) HasRated(ctx context.Context, photoID, raterID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM ratings WHERE photo_id = $1 AND rater_id = $2)
	`, photoID, raterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check rating exists: %w", err)
	}
	return exists, nil
}
