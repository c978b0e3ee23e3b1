package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmkolesov/snaprate/internal/auth"
	"github.com/dmkolesov/snaprate/internal/database"
	"github.com/dmkolesov/snaprate/internal/logging"
	"github.com/dmkolesov/snaprate/internal/models"
	"github.com/dmkolesov/snaprate/internal/photos"
	"github.com/dmkolesov/snaprate/internal/ratelimit"
	"github.com/dmkolesov/snaprate/internal/session"
)

// PhotoUploader persists uploaded photos.
type PhotoUploader interface {
	Upload(ctx context.Context, req photos.UploadRequest) (*models.Photo, error)
}

// PhotoLoader serves stored photo bytes.
type PhotoLoader interface {
	Load(ctx context.Context, photoID string, variant models.ImageVariant) (*models.ImageAsset, error)
}

// PhotoSelector picks photos to rate.
type PhotoSelector interface {
	Next(ctx context.Context, raterID string) (*models.Photo, error)
	Random(ctx context.Context) (*models.Photo, error)
}

// RatingSubmitter records ratings.
type RatingSubmitter interface {
	Submit(ctx context.Context, photoID, raterID string, value int) (*models.Rating, error)
}

// UserDirectory resolves and tracks users.
type UserDirectory interface {
	Upsert(ctx context.Context, params database.UpsertParams) (*models.User, error)
	Stats(ctx context.Context, id string) (*models.UserStats, error)
}

// Server is the HTTP API for the Mini App. Any of the backend services may
// be nil when its dependency failed to start; handlers then report
// unavailability and the session controller degrades to local data.
type Server struct {
	sessions       *session.Manager
	controller     *session.Controller
	uploads        PhotoUploader
	loader         PhotoLoader
	selector       PhotoSelector
	rater          RatingSubmitter
	users          UserDirectory
	authSvc         *auth.Service
	authMiddleware  *auth.Middleware
	requireInitData bool
	limiter         ratelimit.RateLimiter
	maxUploadSize   int64
	logger          *logging.Logger
	server          *http.Server
}

// Deps bundles the server's collaborators.
type Deps struct {
	Sessions       *session.Manager
	Controller     *session.Controller
	Uploads        PhotoUploader
	Loader         PhotoLoader
	Selector       PhotoSelector
	Rater          RatingSubmitter
	Users          UserDirectory
	AuthSvc        *auth.Service
	AuthMiddleware *auth.Middleware
	// RequireInitData gates the write endpoints behind Telegram-verified
	// identity instead of trusting the bridge-supplied userId.
	RequireInitData bool
	Limiter         ratelimit.RateLimiter
	MaxUploadSize   int64
	Logger          *logging.Logger
}

// New creates the HTTP server.
func New(deps Deps) *Server {
	return &Server{
		sessions:       deps.Sessions,
		controller:     deps.Controller,
		uploads:        deps.Uploads,
		loader:         deps.Loader,
		selector:       deps.Selector,
		rater:          deps.Rater,
		users:          deps.Users,
		authSvc:         deps.AuthSvc,
		authMiddleware:  deps.AuthMiddleware,
		requireInitData: deps.RequireInitData,
		limiter:         deps.Limiter,
		maxUploadSize:   deps.MaxUploadSize,
		logger:          deps.Logger,
	}
}

// Start registers routes and serves until Shutdown.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	// Mini App client routes
	legacyAPI := NewLegacyAPI(s.uploads, s.selector, s.rater, s.users, s.authMiddleware, s.requireInitData, s.limiter, s.maxUploadSize, s.logger)
	legacyAPI.RegisterRoutes(mux, s.corsMiddleware)

	// Server-held session flow
	sessionAPI := NewSessionAPI(s.sessions, s.controller, s.authMiddleware, s.maxUploadSize, s.logger)
	sessionAPI.RegisterRoutes(mux, s.corsMiddleware)

	// Stored photo bytes
	photoAPI := NewPhotoAPI(s.loader, s.logger)
	photoAPI.RegisterRoutes(mux, s.corsMiddleware)

	// Telegram identity
	if s.authSvc != nil {
		authAPI := NewAuthAPI(s.authSvc, s.logger)
		authAPI.RegisterRoutes(mux, s.corsMiddleware)
	}

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
