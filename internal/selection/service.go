// Package selection picks the next photo a user gets to rate.
package selection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmkolesov/snaprate/internal/cache"
	"github.com/dmkolesov/snaprate/internal/logging"
	"github.com/dmkolesov/snaprate/internal/models"
)

// ErrExhausted is returned when the rater has seen every eligible photo.
var ErrExhausted = errors.New("no unrated photos left")

// exhaustedTTL bounds how long an empty pool is remembered per rater. A new
// upload clears it early via NotifyUploaded.
const exhaustedTTL = 30 * time.Second

// PhotoSource provides candidate photos from the store.
type PhotoSource interface {
	PickUnrated(ctx context.Context, raterID string) (*models.Photo, error)
	PickRandom(ctx context.Context) (*models.Photo, error)
}

// Service selects photos for rating. Own photos and already-rated photos are
// excluded by the store query, so a fresh pick is safe to rate.
type Service struct {
	photos PhotoSource
	cache  cache.Cache
	logger *logging.Logger

	mu        sync.Mutex
	exhausted map[string]struct{}
}

// NewService creates a new selection service.
func NewService(photos PhotoSource, c cache.Cache, logger *logging.Logger) *Service {
	return &Service{
		photos:    photos,
		cache:     c,
		logger:    logger,
		exhausted: make(map[string]struct{}),
	}
}

func exhaustedKey(raterID string) string {
	return "selection:exhausted:" + raterID
}

// Next returns a photo the rater has not rated and does not own, or
// ErrExhausted when none remain.
func (s *Service) Next(ctx context.Context, raterID string) (*models.Photo, error) {
	if raterID == "" {
		return nil, errors.New("rater id is required")
	}

	if s.cache != nil {
		if _, found := s.cache.Get(exhaustedKey(raterID)); found {
			return nil, ErrExhausted
		}
	}

	photo, err := s.photos.PickUnrated(ctx, raterID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		if s.cache != nil {
			s.cache.SetWithTTL(exhaustedKey(raterID), true, exhaustedTTL)
			s.mu.Lock()
			s.exhausted[raterID] = struct{}{}
			s.mu.Unlock()
		}
		s.logger.Debug("Rating pool exhausted", logging.WithField("rater_id", raterID))
		return nil, ErrExhausted
	}

	return photo, nil
}

// Random returns any active photo, without per-rater exclusions. Used by the
// public showcase endpoint.
func (s *Service) Random(ctx context.Context) (*models.Photo, error) {
	photo, err := s.photos.PickRandom(ctx)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, ErrExhausted
	}
	return photo, nil
}

// NotifyUploaded drops cached exhaustion markers so a fresh upload becomes
// visible to waiting raters immediately.
func (s *Service) NotifyUploaded() {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	raters := make([]string, 0, len(s.exhausted))
	for raterID := range s.exhausted {
		raters = append(raters, raterID)
	}
	s.exhausted = make(map[string]struct{})
	s.mu.Unlock()

	for _, raterID := range raters {
		s.cache.Delete(exhaustedKey(raterID))
	}
}
