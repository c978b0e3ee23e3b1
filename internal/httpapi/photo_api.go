package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmkolesov/snaprate/internal/logging"
	"github.com/dmkolesov/snaprate/internal/models"
	"github.com/dmkolesov/snaprate/internal/photos"
)

// PhotoAPI serves stored photo bytes when the database backend holds them.
// With MinIO configured, photo URLs point at the object store instead and
// these routes are simply never hit.
type PhotoAPI struct {
	loader PhotoLoader
	logger *logging.Logger
}

// NewPhotoAPI creates the photo bytes handler.
func NewPhotoAPI(loader PhotoLoader, logger *logging.Logger) *PhotoAPI {
	return &PhotoAPI{loader: loader, logger: logger}
}

// RegisterRoutes registers photo byte routes.
func (api *PhotoAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/photos/", corsMiddleware(api.handleGetPhotoBytes))
}

func (api *PhotoAPI) handleGetPhotoBytes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if api.loader == nil {
		http.Error(w, "photo not found", http.StatusNotFound)
		return
	}

	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/photos/"), "/")
	photoID := path
	variant := models.ImageVariantOriginal
	if strings.HasSuffix(path, "/thumbnail") {
		photoID = strings.TrimSuffix(path, "/thumbnail")
		variant = models.ImageVariantThumbnail
	}
	if photoID == "" || strings.Contains(photoID, "/") {
		http.Error(w, "photo id required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	asset, err := api.loader.Load(ctx, photoID, variant)
	if err != nil {
		api.logger.Error("Failed to load photo bytes",
			logging.WithField("photo_id", photoID),
			logging.WithField("error", err.Error()))
		http.Error(w, "photo not found", http.StatusNotFound)
		return
	}
	if asset == nil {
		http.Error(w, "photo not found", http.StatusNotFound)
		return
	}

	contentType, ok := photos.DetectAllowedImageContentType(asset.ImageBytes)
	if !ok {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(asset.ImageBytes)))
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(asset.ImageBytes)
}
