package app

import (
	"context"
	"time"

	"github.com/dmkolesov/snaprate/internal/auth"
	"github.com/dmkolesov/snaprate/internal/cache"
	"github.com/dmkolesov/snaprate/internal/config"
	"github.com/dmkolesov/snaprate/internal/database"
	"github.com/dmkolesov/snaprate/internal/httpapi"
	"github.com/dmkolesov/snaprate/internal/logging"
	"github.com/dmkolesov/snaprate/internal/models"
	"github.com/dmkolesov/snaprate/internal/moderation"
	"github.com/dmkolesov/snaprate/internal/photos"
	"github.com/dmkolesov/snaprate/internal/ratelimit"
	"github.com/dmkolesov/snaprate/internal/ratings"
	"github.com/dmkolesov/snaprate/internal/selection"
	"github.com/dmkolesov/snaprate/internal/session"
	"github.com/dmkolesov/snaprate/internal/storage"
)

// App holds all application dependencies
type App struct {
	Config         *config.Config
	Logger         *logging.Logger
	Cache          cache.Cache
	PhotoSvc       *photos.Service
	SelectionSvc   *selection.Service
	RatingSvc      *ratings.Service
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	Sessions       *session.Manager
	Controller     *session.Controller
	HTTPServer     *httpapi.Server

	db           *database.DB
	userStore    *database.UserStore
	uploads      *uploadNotifier
	writeLimiter ratelimit.RateLimiter
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// Initialize logger
	app.Logger = app.initLogger()

	// Initialize cache (also picks the rate limiter backend)
	app.Cache = app.initCache()

	// Initialize database-backed services
	app.initDatabaseServices()

	// Initialize the session engine
	app.initSessionEngine()

	// Initialize HTTP server
	app.initServer()

	return app, nil
}

// Run starts the HTTP server and blocks until it stops
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))
	return a.HTTPServer.Start(a.Config.Server.HTTPAddr)
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

func (a *App) initLogger() *logging.Logger {
	level := logging.LevelInfo
	switch a.Config.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(level)
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   a.Config.Cache.RedisAddr,
			Prefix: "snaprate:",
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			a.writeLimiter = ratelimit.New(a.Config.Server.RateLimitDur)
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		// Use Redis for distributed rate limiting when available
		a.writeLimiter = ratelimit.NewRedis(redisCache.Client(), "ratelimit:write:", a.Config.Server.RateLimitDur)
		a.Logger.Info("Using Redis for distributed rate limiting")
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		a.writeLimiter = ratelimit.New(a.Config.Server.RateLimitDur)
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

func (a *App) initDatabaseServices() {
	dbConfig := database.Config{
		Host:     a.Config.Database.Host,
		Port:     a.Config.Database.Port,
		User:     a.Config.Database.User,
		Password: a.Config.Database.Password,
		Database: a.Config.Database.Database,
		SSLMode:  a.Config.Database.SSLMode,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		a.Logger.Warn("Failed to connect to PostgreSQL, running in degraded mode (uploads and auth disabled)", logging.WithField("error", err.Error()))
		// Auth service requires database, so we create a no-op middleware
		a.AuthMiddleware = auth.NewMiddleware(nil)
		return
	}

	a.Logger.Info("Connected to PostgreSQL")
	if err := db.Migrate(context.Background()); err != nil {
		a.Logger.Warn("Failed to run migrations, running in degraded mode (uploads and auth disabled)", logging.WithField("error", err.Error()))
		a.AuthMiddleware = auth.NewMiddleware(nil)
		db.Close()
		return
	}

	a.db = db

	photoStore := database.NewPhotoStore(db)
	ratingStore := database.NewRatingStore(db)
	assetStore := database.NewImageAssetStore(db)

	// Initialize photo pipeline
	a.PhotoSvc = photos.NewService(
		a.initModerator(),
		a.initStorage(assetStore),
		photoStore,
		a.Config.Upload.MaxUploadSize,
		a.Config.Upload.ThumbnailWidth,
		a.Config.Moderation.Timeout,
		a.Logger,
	)

	// Initialize selection and ratings
	a.SelectionSvc = selection.NewService(photoStore, a.Cache, a.Logger)
	a.RatingSvc = ratings.NewService(ratingStore, photoStore, a.Logger)
	a.uploads = &uploadNotifier{photos: a.PhotoSvc, selection: a.SelectionSvc}

	// Initialize auth
	a.userStore = database.NewUserStore(db)
	a.AuthService = auth.NewService(a.userStore, a.Config.Auth, a.Logger)
	a.AuthMiddleware = auth.NewMiddleware(a.AuthService)

	a.Logger.Info("Photo services initialized")
}

// initStorage picks the photo byte store. MinIO when an endpoint is
// configured, PostgreSQL otherwise.
func (a *App) initStorage(assetStore *database.ImageAssetStore) photos.Storage {
	if a.Config.ObjectStore.Endpoint == "" {
		a.Logger.Info("Storing photo bytes in PostgreSQL")
		return storage.NewDBStorage(assetStore, a.Config.ObjectStore.PublicBaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	minioStorage, err := storage.NewMinIOStorage(ctx, a.Config.ObjectStore)
	if err != nil {
		a.Logger.Warn("Failed to connect to MinIO, storing photo bytes in PostgreSQL", logging.WithField("error", err.Error()))
		return storage.NewDBStorage(assetStore, a.Config.ObjectStore.PublicBaseURL)
	}

	a.Logger.Info("Using MinIO object storage", logging.WithFields(map[string]interface{}{
		"endpoint": a.Config.ObjectStore.Endpoint,
		"bucket":   a.Config.ObjectStore.Bucket,
	}))
	return minioStorage
}

// initModerator builds the Rekognition-backed moderator when enabled. A nil
// moderator means uploads are accepted without screening.
func (a *App) initModerator() photos.Moderator {
	if !a.Config.Moderation.Enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	detector, err := moderation.NewAWSDetector(ctx, a.Config.Moderation.AWSRegion)
	if err != nil {
		a.Logger.Warn("Failed to initialize Rekognition, uploads will not be screened", logging.WithField("error", err.Error()))
		return nil
	}

	a.Logger.Info("Image moderation enabled", logging.WithField("region", a.Config.Moderation.AWSRegion))
	return moderation.NewService(detector, a.Config.Moderation.RejectConfidence)
}

func (a *App) initSessionEngine() {
	// Assign interfaces only for live services so the controller sees a
	// true nil when the database is down and falls back to demo data.
	var uploader session.Uploader
	var selector session.Selector
	var rater session.Rater
	if a.uploads != nil {
		uploader = a.uploads
	}
	if a.SelectionSvc != nil {
		selector = a.SelectionSvc
	}
	if a.RatingSvc != nil {
		rater = a.RatingSvc
	}

	a.Sessions = session.NewManager(a.Config.Session.TTL)
	a.Controller = session.NewController(uploader, selector, rater, session.Config{
		AutoAdvance: a.Config.Session.AutoAdvance,
		MaxFileSize: a.Config.Upload.MaxUploadSize,
	}, a.Logger)
}

func (a *App) initServer() {
	deps := httpapi.Deps{
		Sessions:       a.Sessions,
		Controller:     a.Controller,
		AuthSvc:         a.AuthService,
		AuthMiddleware:  a.AuthMiddleware,
		RequireInitData: a.Config.Auth.RequireInitData,
		Limiter:         a.writeLimiter,
		MaxUploadSize:  a.Config.Upload.MaxUploadSize,
		Logger:         a.Logger,
	}
	if a.uploads != nil {
		deps.Uploads = a.uploads
	}
	if a.PhotoSvc != nil {
		deps.Loader = a.PhotoSvc
	}
	if a.SelectionSvc != nil {
		deps.Selector = a.SelectionSvc
	}
	if a.RatingSvc != nil {
		deps.Rater = a.RatingSvc
	}
	if a.userStore != nil {
		deps.Users = a.userStore
	}

	a.HTTPServer = httpapi.New(deps)
}

// uploadNotifier runs the photo pipeline and clears cached pool-exhaustion
// markers so waiting raters see a fresh upload immediately.
type uploadNotifier struct {
	photos    *photos.Service
	selection *selection.Service
}

func (u *uploadNotifier) Upload(ctx context.Context, req photos.UploadRequest) (*models.Photo, error) {
	photo, err := u.photos.Upload(ctx, req)
	if err == nil && u.selection != nil {
		u.selection.NotifyUploaded()
	}
	return photo, err
}
