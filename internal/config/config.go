package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Cache       CacheConfig
	Database    DatabaseConfig
	ObjectStore ObjectStoreConfig
	Logging     LoggingConfig
	Auth        AuthConfig
	Upload      UploadConfig
	Moderation  ModerationConfig
	Session     SessionConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr     string
	RateLimitDur time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ObjectStoreConfig holds MinIO object storage configuration.
// When Endpoint is empty photo bytes are kept in PostgreSQL instead.
type ObjectStoreConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// AuthConfig holds Telegram identity and token configuration
type AuthConfig struct {
	TelegramBotToken string
	RequireInitData  bool
	JWTSecret        string
	JWTIssuer        string
	JWTAudience      string
	SessionTokenTTL  time.Duration
}

// UploadConfig holds photo upload limits
type UploadConfig struct {
	MaxUploadSize  int64
	ThumbnailWidth int
}

// ModerationConfig holds image moderation settings.
type ModerationConfig struct {
	Enabled          bool
	AWSRegion        string
	RejectConfidence float64
	Timeout          time.Duration
}

// SessionConfig holds session engine settings
type SessionConfig struct {
	AutoAdvance bool
	TTL         time.Duration
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	// Values from a local .env file fill in anything the environment
	// does not already set.
	_ = godotenv.Load()

	cfg := &Config{}

	// Define flags with defaults
	httpAddr := flag.String("http", ":8080", "HTTP server address")
	cacheTTL := flag.Duration("cache-ttl", 5*time.Minute, "Cache TTL for photo lookups")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	rateLimitDur := flag.Duration("rate-limit", time.Second, "Minimum delay between write requests from the same client")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	dbHost := flag.String("db-host", "localhost", "PostgreSQL host")
	dbPort := flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser := flag.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := flag.String("db-password", "postgres", "PostgreSQL password")
	dbName := flag.String("db-name", "snaprate", "PostgreSQL database name")
	dbSSLMode := flag.String("db-sslmode", "disable", "PostgreSQL SSL mode")

	flag.Parse()

	// Apply environment variable overrides
	applyEnvOverrides(httpAddr, cacheTTL, cacheBackend, redisAddr, rateLimitDur, logLevel, dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)

	cfg.Server = ServerConfig{
		HTTPAddr:     *httpAddr,
		RateLimitDur: *rateLimitDur,
	}

	cfg.Cache = CacheConfig{
		Backend:   *cacheBackend,
		TTL:       *cacheTTL,
		RedisAddr: *redisAddr,
	}

	cfg.Database = DatabaseConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		Database: *dbName,
		SSLMode:  *dbSSLMode,
	}

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	cfg.ObjectStore = loadObjectStoreConfig()
	cfg.Auth = loadAuthConfig()
	cfg.Upload = loadUploadConfig()
	cfg.Moderation = loadModerationConfig()
	cfg.Session = loadSessionConfig()

	return cfg
}

func loadObjectStoreConfig() ObjectStoreConfig {
	return ObjectStoreConfig{
		Endpoint:      os.Getenv("MINIO_ENDPOINT"),
		AccessKey:     getEnvOrDefault("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey:     getEnvOrDefault("MINIO_SECRET_KEY", "minioadmin"),
		Bucket:        getEnvOrDefault("MINIO_BUCKET", "photos"),
		UseSSL:        os.Getenv("MINIO_USE_SSL") == "true",
		PublicBaseURL: getEnvOrDefault("PHOTO_PUBLIC_BASE_URL", "/photos"),
	}
}

func loadAuthConfig() AuthConfig {
	tokenTTL := 24 * time.Hour
	if v := os.Getenv("AUTH_SESSION_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			tokenTTL = d
		}
	}

	return AuthConfig{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		RequireInitData:  os.Getenv("AUTH_REQUIRE_INIT_DATA") == "true",
		JWTSecret:        getEnvOrDefault("AUTH_JWT_SECRET", "change-me-in-production"),
		JWTIssuer:        getEnvOrDefault("AUTH_JWT_ISSUER", "snaprate"),
		JWTAudience:      getEnvOrDefault("AUTH_JWT_AUDIENCE", "snaprate-users"),
		SessionTokenTTL:  tokenTTL,
	}
}

func loadUploadConfig() UploadConfig {
	maxSize := int64(10 * 1024 * 1024)
	if v := os.Getenv("MAX_UPLOAD_SIZE"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			maxSize = parsed
		}
	}

	thumbWidth := 500
	if v := os.Getenv("THUMBNAIL_WIDTH"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			thumbWidth = parsed
		}
	}

	return UploadConfig{
		MaxUploadSize:  maxSize,
		ThumbnailWidth: thumbWidth,
	}
}

func loadModerationConfig() ModerationConfig {
	rejectConfidence := 70.0
	if v := os.Getenv("MODERATION_REJECT_CONFIDENCE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			rejectConfidence = parsed
		}
	}

	timeout := 5 * time.Second
	if v := os.Getenv("MODERATION_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			timeout = parsed
		}
	}

	enabled := false
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("IMAGE_MODERATION_ENABLED"))); v == "true" || v == "1" {
		enabled = true
	}

	return ModerationConfig{
		Enabled:          enabled,
		AWSRegion:        os.Getenv("AWS_REGION"),
		RejectConfidence: rejectConfidence,
		Timeout:          timeout,
	}
}

func loadSessionConfig() SessionConfig {
	ttl := 2 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}

	autoAdvance := false
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("SESSION_AUTO_ADVANCE"))); v == "true" || v == "1" {
		autoAdvance = true
	}

	return SessionConfig{
		AutoAdvance: autoAdvance,
		TTL:         ttl,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func applyEnvOverrides(
	httpAddr *string,
	cacheTTL *time.Duration,
	cacheBackend *string,
	redisAddr *string,
	rateLimitDur *time.Duration,
	logLevel *string,
	dbHost *string,
	dbPort *int,
	dbUser *string,
	dbPassword *string,
	dbName *string,
	dbSSLMode *string,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*cacheTTL = d
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*rateLimitDur = d
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		*dbHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			*dbPort = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		*dbUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		*dbPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		*dbName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		*dbSSLMode = v
	}
}
