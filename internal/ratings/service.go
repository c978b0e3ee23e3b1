// Package ratings validates and records photo ratings.
package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmkolesov/snaprate/internal/database"
	"github.com/dmkolesov/snaprate/internal/logging"
	"github.com/dmkolesov/snaprate/internal/models"
)

var (
	// ErrInvalidValue is returned when the rating is outside 1..10.
	ErrInvalidValue = errors.New("rating must be between 1 and 10")
	// ErrPhotoNotFound is returned when the rated photo is missing or removed.
	ErrPhotoNotFound = errors.New("photo not found")
	// ErrOwnPhoto is returned when a user tries to rate their own photo.
	ErrOwnPhoto = errors.New("cannot rate your own photo")
	// ErrDuplicateRating is returned when the rater already rated this photo.
	ErrDuplicateRating = errors.New("photo already rated")
)

// RatingStore persists ratings and maintains photo aggregates.
type RatingStore interface {
	Insert(ctx context.Context, photoID, raterID string, value int) (*models.Rating, error)
}

// PhotoGetter loads photo records for validation.
type PhotoGetter interface {
	GetByID(ctx context.Context, id string) (*models.Photo, error)
}

// Service accepts ratings, enforcing range, ownership and one-vote-per-photo
// rules before they reach the store.
type Service struct {
	ratings RatingStore
	photos  PhotoGetter
	logger  *logging.Logger
}

// NewService creates a new ratings service.
func NewService(ratings RatingStore, photos PhotoGetter, logger *logging.Logger) *Service {
	return &Service{
		ratings: ratings,
		photos:  photos,
		logger:  logger,
	}
}

// Submit records one rating. The photo's aggregates and the rater's counter
// are updated atomically by the store.
func (s *Service) Submit(ctx context.Context, photoID, raterID string, value int) (*models.Rating, error) {
	if photoID == "" || raterID == "" {
		return nil, fmt.Errorf("photo id and rater id are required")
	}
	if !models.ValidRatingValue(value) {
		return nil, ErrInvalidValue
	}
	// Photo ids are UUIDs; anything else (a client's local demo-/fallback-
	// id, say) cannot exist and would only trip the store's uuid column.
	if _, err := uuid.Parse(photoID); err != nil {
		return nil, ErrPhotoNotFound
	}

	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("load photo: %w", err)
	}
	if photo == nil || !photo.IsActive() {
		return nil, ErrPhotoNotFound
	}
	if photo.OwnerID == raterID {
		return nil, ErrOwnPhoto
	}

	rating, err := s.ratings.Insert(ctx, photoID, raterID, value)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateRating) {
			return nil, ErrDuplicateRating
		}
		return nil, fmt.Errorf("insert rating: %w", err)
	}

	s.logger.Info("Rating recorded",
		logging.WithField("photo_id", photoID),
		logging.WithField("rater_id", raterID),
		logging.WithField("value", value))

	return rating, nil
}
