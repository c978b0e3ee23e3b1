package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmkolesov/snaprate/internal/auth"
	"github.com/dmkolesov/snaprate/internal/database"
	"github.com/dmkolesov/snaprate/internal/logging"
	"github.com/dmkolesov/snaprate/internal/photos"
	"github.com/dmkolesov/snaprate/internal/ratelimit"
	"github.com/dmkolesov/snaprate/internal/ratings"
	"github.com/dmkolesov/snaprate/internal/selection"
)

// LegacyAPI serves the flat endpoints the Mini App client calls directly:
// /test, /upload, /get_photo, /get_unrated_photo/{userId}, /stats/{userId}
// and /rate. Identity is the opaque userId the Telegram bridge supplies.
type LegacyAPI struct {
	uploads        PhotoUploader
	selector       PhotoSelector
	rater          RatingSubmitter
	users          UserDirectory
	authMiddleware *auth.Middleware
	requireAuth    bool
	limiter        ratelimit.RateLimiter
	maxUploadSize  int64
	logger         *logging.Logger
}

// NewLegacyAPI creates the Mini App client API handler. With requireAuth set
// the write endpoints only accept Telegram-verified identities.
func NewLegacyAPI(uploads PhotoUploader, selector PhotoSelector, rater RatingSubmitter, users UserDirectory, authMiddleware *auth.Middleware, requireAuth bool, limiter ratelimit.RateLimiter, maxUploadSize int64, logger *logging.Logger) *LegacyAPI {
	return &LegacyAPI{
		uploads:        uploads,
		selector:       selector,
		rater:          rater,
		users:          users,
		authMiddleware: authMiddleware,
		requireAuth:    requireAuth,
		limiter:        limiter,
		maxUploadSize:  maxUploadSize,
		logger:         logger,
	}
}

// RegisterRoutes registers the client routes.
func (api *LegacyAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	upload := api.handleUpload
	rate := api.handleRate
	if api.requireAuth && api.authMiddleware != nil {
		upload = api.authMiddleware.RequireAuth(upload)
		rate = api.authMiddleware.RequireAuth(rate)
	}

	mux.HandleFunc("/test", corsMiddleware(api.handleTest))
	mux.HandleFunc("/upload", corsMiddleware(upload))
	mux.HandleFunc("/get_photo", corsMiddleware(api.handleGetPhoto))
	mux.HandleFunc("/get_unrated_photo/", corsMiddleware(api.handleGetUnratedPhoto))
	mux.HandleFunc("/stats/", corsMiddleware(api.handleStats))
	mux.HandleFunc("/rate", corsMiddleware(rate))
}

// resolveWriteUserID returns the acting user for a write request. With
// enforcement on, identity comes from the verified token and any
// client-supplied userId must agree with it. The second return is an error
// code, empty on success.
func (api *LegacyAPI) resolveWriteUserID(r *http.Request, supplied string) (string, string) {
	if !api.requireAuth {
		return supplied, ""
	}

	tokenUser := auth.GetUserID(r.Context())
	if tokenUser == "" {
		return "", "authorization_required"
	}
	if supplied != "" && supplied != tokenUser {
		return "", "user_mismatch"
	}
	return tokenUser, ""
}

func (api *LegacyAPI) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "API is working",
		"status":  "ok",
	})
}

func (api *LegacyAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if api.uploads == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		return
	}

	maxSize := api.maxUploadSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	// Leave headroom for the multipart framing around the photo itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+64*1024)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
		return
	}

	userID, errCode := api.resolveWriteUserID(r, strings.TrimSpace(r.FormValue("userId")))
	if errCode == "user_mismatch" {
		writeError(w, http.StatusForbidden, errCode)
		return
	}
	if errCode != "" {
		writeError(w, http.StatusUnauthorized, errCode)
		return
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id_required")
		return
	}

	if api.limiter != nil && !api.limiter.Allow("upload:"+userID) {
		writeError(w, http.StatusTooManyRequests, "too_many_requests")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo_required")
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "upload_failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if api.users != nil {
		if _, err := api.users.Upsert(ctx, database.UpsertParams{ID: userID}); err != nil {
			api.logger.Error("Failed to upsert user", logging.WithField("error", err.Error()))
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
			return
		}
	}

	photo, err := api.uploads.Upload(ctx, photos.UploadRequest{
		OwnerID:     userID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		switch {
		case errors.Is(err, photos.ErrInvalidContentType):
			writeError(w, http.StatusBadRequest, "invalid_content_type")
		case errors.Is(err, photos.ErrPayloadTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
		case errors.Is(err, photos.ErrModerationRejected):
			writeError(w, http.StatusUnprocessableEntity, "photo_rejected")
		default:
			api.logger.Error("Upload failed", logging.WithField("error", err.Error()))
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"photo":   photo,
	})
}

func (api *LegacyAPI) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if api.selector == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		return
	}

	photo, err := api.selector.Random(r.Context())
	if err != nil {
		if errors.Is(err, selection.ErrExhausted) {
			writeError(w, http.StatusOK, "no_photos")
			return
		}
		api.logger.Error("Random photo failed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"photo":   photo,
	})
}

func (api *LegacyAPI) handleGetUnratedPhoto(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/get_unrated_photo/"), "/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id_required")
		return
	}
	if api.selector == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		return
	}

	photo, err := api.selector.Next(r.Context(), userID)
	if err != nil {
		if errors.Is(err, selection.ErrExhausted) {
			// The client treats this as a state, not a failure.
			writeError(w, http.StatusOK, "no_more_photos")
			return
		}
		api.logger.Error("Photo selection failed",
			logging.WithField("user_id", userID),
			logging.WithField("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"photo":   photo,
	})
}

func (api *LegacyAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/stats/"), "/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id_required")
		return
	}
	if api.users == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		return
	}

	stats, err := api.users.Stats(r.Context(), userID)
	if err != nil {
		api.logger.Error("Stats lookup failed",
			logging.WithField("user_id", userID),
			logging.WithField("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

type rateRequest struct {
	PhotoID string `json:"photoId"`
	Rating  int    `json:"rating"`
	UserID  string `json:"userId"`
}

func (api *LegacyAPI) handleRate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if api.rater == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		return
	}

	var req rateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4*1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	userID, errCode := api.resolveWriteUserID(r, strings.TrimSpace(req.UserID))
	if errCode == "user_mismatch" {
		writeError(w, http.StatusForbidden, errCode)
		return
	}
	if errCode != "" {
		writeError(w, http.StatusUnauthorized, errCode)
		return
	}
	if req.PhotoID == "" || userID == "" {
		writeError(w, http.StatusBadRequest, "photo_id_and_user_id_required")
		return
	}

	if api.limiter != nil && !api.limiter.Allow("rate:"+userID) {
		writeError(w, http.StatusTooManyRequests, "too_many_requests")
		return
	}

	if api.users != nil {
		if _, err := api.users.Upsert(r.Context(), database.UpsertParams{ID: userID}); err != nil {
			api.logger.Error("Failed to upsert user", logging.WithField("error", err.Error()))
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
			return
		}
	}

	rating, err := api.rater.Submit(r.Context(), req.PhotoID, userID, req.Rating)
	if err != nil {
		switch {
		case errors.Is(err, ratings.ErrInvalidValue):
			writeError(w, http.StatusBadRequest, "invalid_rating")
		case errors.Is(err, ratings.ErrPhotoNotFound):
			writeError(w, http.StatusNotFound, "photo_not_found")
		case errors.Is(err, ratings.ErrOwnPhoto):
			writeError(w, http.StatusForbidden, "own_photo")
		case errors.Is(err, ratings.ErrDuplicateRating):
			writeError(w, http.StatusConflict, "already_rated")
		default:
			api.logger.Error("Rating failed", logging.WithField("error", err.Error()))
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"rating":  rating.Value,
		"photoId": rating.PhotoID,
	})
}
