package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmkolesov/snaprate/internal/logging"
	"github.com/dmkolesov/snaprate/internal/models"
	"github.com/dmkolesov/snaprate/internal/photos"
	"github.com/dmkolesov/snaprate/internal/ratings"
	"github.com/dmkolesov/snaprate/internal/selection"
)

// Uploader persists a picked photo.
type Uploader interface {
	Upload(ctx context.Context, req photos.UploadRequest) (*models.Photo, error)
}

// Selector picks the next photo to rate.
type Selector interface {
	Next(ctx context.Context, raterID string) (*models.Photo, error)
}

// Rater records a submitted rating.
type Rater interface {
	Submit(ctx context.Context, photoID, raterID string, value int) (*models.Rating, error)
}

// Config tunes the flow.
type Config struct {
	// AutoAdvance skips the thanks screen and loads the next photo
	// directly after a rating is submitted.
	AutoAdvance bool
	// MaxFileSize is the client-side upload ceiling in bytes.
	MaxFileSize int64
}

// Controller drives sessions through the upload/rate/thanks loop. Backend
// services may be nil or failing; the controller then falls back to the
// local demo pool so the flow keeps moving.
type Controller struct {
	uploader Uploader
	selector Selector
	rater    Rater
	cfg      Config
	logger   *logging.Logger
}

// NewController creates a session controller.
func NewController(uploader Uploader, selector Selector, rater Rater, cfg Config, logger *logging.Logger) *Controller {
	return &Controller{
		uploader: uploader,
		selector: selector,
		rater:    rater,
		cfg:      cfg,
		logger:   logger,
	}
}

// SelectFile stages a picked file on the upload screen. Rejected files leave
// any previously staged file untouched.
func (c *Controller) SelectFile(sess *Session, name, contentType string, size int64, data []byte) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()

	if sess.screen != ScreenUpload {
		return validationError("no upload in progress")
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		sess.status = "Pick an image file"
		return validationError("only images can be uploaded")
	}
	if c.cfg.MaxFileSize > 0 && size > c.cfg.MaxFileSize {
		sess.status = fmt.Sprintf("File too large, max %d MB", c.cfg.MaxFileSize/(1024*1024))
		return validationError("file exceeds the size limit")
	}

	sess.pendingFile = &PendingFile{
		Name:        name,
		ContentType: contentType,
		Size:        size,
		Data:        data,
	}
	sess.status = "Photo ready to upload"
	return nil
}

// SubmitUpload sends the staged file to the backend and moves on to the rate
// screen. Backend failure does not block the transition.
func (c *Controller) SubmitUpload(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()

	if sess.screen != ScreenUpload || sess.pendingFile == nil {
		return validationError("no file selected")
	}

	file := sess.pendingFile
	var actionErr *Error

	if c.uploader == nil {
		actionErr = &Error{Kind: KindNetwork, Message: "upload service unavailable"}
	} else if _, err := c.uploader.Upload(ctx, photos.UploadRequest{
		OwnerID:     sess.userID,
		FileName:    file.Name,
		ContentType: file.ContentType,
		Data:        file.Data,
	}); err != nil {
		switch {
		case errors.Is(err, photos.ErrInvalidContentType):
			sess.status = "Pick an image file"
			return validationError("only images can be uploaded")
		case errors.Is(err, photos.ErrPayloadTooLarge):
			sess.status = "File too large"
			return validationError("file exceeds the size limit")
		case errors.Is(err, photos.ErrModerationRejected):
			sess.pendingFile = nil
			sess.status = "This photo can't be shared"
			return &Error{Kind: KindServerLogic, Message: "photo rejected by moderation", Err: err}
		default:
			actionErr = &Error{Kind: KindNetwork, Message: "upload failed", Err: err}
		}
	}

	sess.pendingFile = nil
	sess.uploads++

	if actionErr != nil {
		c.logger.Warn("Upload failed, continuing to rating",
			logging.WithField("user_id", sess.userID),
			logging.WithField("error", actionErr.Error()))
		sess.status = "Photo saved locally"
	} else {
		sess.status = "Photo uploaded!"
	}

	c.enterRate(ctx, sess)
	return actionErr.orNil()
}

// SetRating stages a draft rating on the current photo.
func (c *Controller) SetRating(sess *Session, value int) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()

	if sess.screen != ScreenRate || sess.exhausted || sess.currentPhoto == nil {
		return validationError("no photo to rate")
	}
	if !models.ValidRatingValue(value) {
		return validationError("rating must be between 1 and 10")
	}

	sess.draftRating = value
	sess.status = fmt.Sprintf("%d/10", value)
	return nil
}

// SubmitRating sends the draft rating. The photo counts as rated locally
// even when the backend call fails, so it is never offered again in this
// session.
func (c *Controller) SubmitRating(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()

	if sess.screen != ScreenRate || sess.currentPhoto == nil {
		return validationError("no photo to rate")
	}
	if !models.ValidRatingValue(sess.draftRating) {
		return validationError("pick a rating first")
	}

	photoID := sess.currentPhoto.ID
	var actionErr *Error

	if c.rater == nil {
		actionErr = &Error{Kind: KindNetwork, Message: "rating service unavailable"}
	} else if _, err := c.rater.Submit(ctx, photoID, sess.userID, sess.draftRating); err != nil {
		switch {
		case errors.Is(err, ratings.ErrDuplicateRating),
			errors.Is(err, ratings.ErrPhotoNotFound),
			errors.Is(err, ratings.ErrOwnPhoto),
			errors.Is(err, ratings.ErrInvalidValue):
			actionErr = &Error{Kind: KindServerLogic, Message: "rating not accepted", Err: err}
		default:
			actionErr = &Error{Kind: KindNetwork, Message: "rating not delivered", Err: err}
		}
	}

	if actionErr != nil {
		c.logger.Warn("Rating kept locally",
			logging.WithField("user_id", sess.userID),
			logging.WithField("photo_id", photoID),
			logging.WithField("error", actionErr.Error()))
	}

	sess.ratedIDs[photoID] = struct{}{}
	sess.currentPhoto = nil
	sess.draftRating = 0
	sess.status = "Rating sent!"

	if c.cfg.AutoAdvance {
		c.enterRate(ctx, sess)
	} else {
		sess.screen = ScreenThanks
	}
	return actionErr.orNil()
}

// RateAnother leaves the thanks screen. Depending on configuration it goes
// back to upload or straight to the next photo.
func (c *Controller) RateAnother(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()

	if sess.screen != ScreenThanks {
		return validationError("nothing to continue from")
	}

	if c.cfg.AutoAdvance {
		c.enterRate(ctx, sess)
		return nil
	}

	sess.screen = ScreenUpload
	sess.exhausted = false
	sess.status = "Ready"
	return nil
}

// Refresh retries photo selection for a session sitting on the rate screen,
// typically after the pool was exhausted.
func (c *Controller) Refresh(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()

	if sess.screen != ScreenRate {
		return validationError("not on the rating screen")
	}

	c.enterRate(ctx, sess)
	return nil
}

// Stats returns session-local counters. They track what this session did,
// including ratings that only succeeded locally.
func (c *Controller) Stats(sess *Session) models.UserStats {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return models.UserStats{
		PhotosUploaded: sess.uploads,
		RatingsGiven:   len(sess.ratedIDs),
	}
}

// enterRate moves the session to the rate screen and loads the next photo,
// falling back to the demo pool when the backend cannot provide one.
// Callers hold sess.mu.
func (c *Controller) enterRate(ctx context.Context, sess *Session) {
	sess.screen = ScreenRate
	sess.exhausted = false
	sess.currentPhoto = nil
	sess.draftRating = 0

	if c.selector != nil {
		photo, err := c.selector.Next(ctx, sess.userID)
		switch {
		case err == nil:
			if !sess.rated(photo.ID) && photo.OwnerID != sess.userID {
				sess.currentPhoto = photo
				sess.status = "Photo loaded! Rate it"
				return
			}
			// A stale pick slipped through, treat the pool as empty.
			sess.exhausted = true
			sess.status = "No more photos to rate"
			return
		case errors.Is(err, selection.ErrExhausted):
			sess.exhausted = true
			sess.status = "No more photos to rate"
			return
		default:
			c.logger.Warn("Selection failed, using fallback photo",
				logging.WithField("user_id", sess.userID),
				logging.WithField("error", err.Error()))
		}
	}

	sess.currentPhoto = pickFallbackPhoto(sess.ratedIDs)
	sess.status = "Demo photo ready!"
}

// orNil converts a typed nil into an untyped nil error.
func (e *Error) orNil() error {
	if e == nil {
		return nil
	}
	return e
}
