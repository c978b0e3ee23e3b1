package photos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmkolesov/snaprate/internal/database"
	"github.com/dmkolesov/snaprate/internal/logging"
	"github.com/dmkolesov/snaprate/internal/models"
)

var (
	// ErrInvalidContentType is returned when the payload is not an accepted image format.
	ErrInvalidContentType = errors.New("file is not an accepted image")
	// ErrPayloadTooLarge is returned when the payload exceeds the configured size ceiling.
	ErrPayloadTooLarge = errors.New("file exceeds the upload size limit")
	// ErrModerationRejected is returned when moderation explicitly rejects the photo.
	ErrModerationRejected = errors.New("photo rejected by moderation")
	// ErrStorageUnavailable is returned when the photo could not be persisted.
	ErrStorageUnavailable = errors.New("photo storage unavailable")
)

// Moderator defines the moderation abstraction used by the upload flow.
type Moderator interface {
	ModerateImageBytes(ctx context.Context, imageBytes []byte) (*models.ModerationDecision, error)
}

// SaveRequest defines a single photo rendition save operation.
type SaveRequest struct {
	PhotoID                 string
	Variant                 models.ImageVariant
	ContentType             string
	ImageBytes              []byte
	ModerationLabels        []models.ModerationLabel
	ModerationMaxConfidence float64
}

// Storage abstracts photo byte persistence so the database backend can be
// swapped for object storage.
type Storage interface {
	Save(ctx context.Context, req SaveRequest) (*models.ImageAsset, error)
	Load(ctx context.Context, photoID string, variant models.ImageVariant) (*models.ImageAsset, error)
	Delete(ctx context.Context, photoID string) error
	URL(photoID string, variant models.ImageVariant) string
}

// RecordStore persists photo records.
type RecordStore interface {
	Create(ctx context.Context, params database.CreatePhotoParams) (*models.Photo, error)
}

// UploadRequest is one photo submitted by a user.
type UploadRequest struct {
	OwnerID     string
	FileName    string
	ContentType string
	Data        []byte
}

// Service orchestrates validation, moderation, thumbnailing and storage for
// photo uploads.
type Service struct {
	moderator         Moderator
	storage           Storage
	records           RecordStore
	maxUploadSize     int64
	thumbnailWidth    int
	moderationTimeout time.Duration
	logger            *logging.Logger
}

// NewService creates a new photo upload service. moderator may be nil when
// moderation is disabled.
func NewService(moderator Moderator, storage Storage, records RecordStore, maxUploadSize int64, thumbnailWidth int, moderationTimeout time.Duration, logger *logging.Logger) *Service {
	return &Service{
		moderator:         moderator,
		storage:           storage,
		records:           records,
		maxUploadSize:     maxUploadSize,
		thumbnailWidth:    thumbnailWidth,
		moderationTimeout: moderationTimeout,
		logger:            logger,
	}
}

// Upload validates and persists one photo, returning the created record.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Photo, error) {
	if req.OwnerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if len(req.Data) == 0 {
		return nil, ErrInvalidContentType
	}
	if s.maxUploadSize > 0 && int64(len(req.Data)) > s.maxUploadSize {
		return nil, ErrPayloadTooLarge
	}

	contentType, ok := DetectAllowedImageContentType(req.Data)
	if !ok {
		return nil, ErrInvalidContentType
	}

	decision := s.moderate(ctx, req.Data)
	if decision.Status == models.ImageModerationRejected {
		s.logger.Warn("Photo rejected by moderation",
			logging.WithField("owner_id", req.OwnerID),
			logging.WithField("reason", decision.Reason))
		return nil, ErrModerationRejected
	}

	photoID := uuid.New().String()

	if _, err := s.storage.Save(ctx, SaveRequest{
		PhotoID:                 photoID,
		Variant:                 models.ImageVariantOriginal,
		ContentType:             contentType,
		ImageBytes:              req.Data,
		ModerationLabels:        decision.Labels,
		ModerationMaxConfidence: decision.MaxConfidence,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	thumbnailURL := ""
	if thumb, err := makeThumbnail(req.Data, s.thumbnailWidth); err != nil {
		s.logger.Debug("Thumbnail generation skipped",
			logging.WithField("photo_id", photoID),
			logging.WithField("error", err.Error()))
	} else {
		if _, err := s.storage.Save(ctx, SaveRequest{
			PhotoID:     photoID,
			Variant:     models.ImageVariantThumbnail,
			ContentType: "image/jpeg",
			ImageBytes:  thumb,
		}); err != nil {
			s.logger.Warn("Thumbnail save failed",
				logging.WithField("photo_id", photoID),
				logging.WithField("error", err.Error()))
		} else {
			thumbnailURL = s.storage.URL(photoID, models.ImageVariantThumbnail)
		}
	}

	photo, err := s.records.Create(ctx, database.CreatePhotoParams{
		ID:           photoID,
		OwnerID:      req.OwnerID,
		ObjectKey:    photoID,
		URL:          s.storage.URL(photoID, models.ImageVariantOriginal),
		ThumbnailURL: thumbnailURL,
		ContentType:  contentType,
	})
	if err != nil {
		if deleteErr := s.storage.Delete(ctx, photoID); deleteErr != nil {
			s.logger.Warn("Orphaned photo bytes not cleaned up",
				logging.WithField("photo_id", photoID),
				logging.WithField("error", deleteErr.Error()))
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.logger.Info("Photo uploaded",
		logging.WithField("photo_id", photo.ID),
		logging.WithField("owner_id", req.OwnerID),
		logging.WithField("content_type", contentType),
		logging.WithField("size_bytes", len(req.Data)))

	return photo, nil
}

// Load proxies photo byte loading to the configured storage backend.
func (s *Service) Load(ctx context.Context, photoID string, variant models.ImageVariant) (*models.ImageAsset, error) {
	return s.storage.Load(ctx, photoID, variant)
}

// Delete removes stored bytes for a photo.
func (s *Service) Delete(ctx context.Context, photoID string) error {
	return s.storage.Delete(ctx, photoID)
}

func (s *Service) moderate(ctx context.Context, imageBytes []byte) *models.ModerationDecision {
	if s.moderator == nil {
		return &models.ModerationDecision{Status: models.ImageModerationApproved}
	}

	timeout := s.moderationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	moderationCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	decision, err := s.moderator.ModerateImageBytes(moderationCtx, imageBytes)
	if err != nil || decision == nil {
		// Moderation being down never blocks an upload.
		s.logger.Warn("Moderation unavailable, accepting photo for later review",
			logging.WithField("error", fmt.Sprint(err)))
		return &models.ModerationDecision{
			Status: models.ImageModerationPendingReview,
			Reason: "Unable to verify right now",
		}
	}

	return decision
}
