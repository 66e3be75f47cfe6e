package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-finder/internal/constants"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Embedding  EmbeddingConfig
	Database   DatabaseConfig
	RateLimit  RateLimitConfig
	Upload     UploadConfig
	Share      ShareConfig
	Web        WebConfig
	Thresholds ThresholdsConfig
}

type WebConfig struct {
	AllowedOrigins string // comma-separated CORS origins; localhost is always allowed
}

type EmbeddingConfig struct {
	URL            string // face embedding service base URL (e.g. http://localhost:8000)
	AllowFallback  bool   // permit the pixel patch backend when the service is down
	TimeoutSeconds int    // per-call timeout for model inference (default 120)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty disables persistence
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RateLimitConfig struct {
	MaxRequests   int // admissions per window per client key (default 10)
	WindowSeconds int // sliding window length (default 60)
}

type UploadConfig struct {
	MaxBatchSize int    // maximum photos per upload request (default 100)
	MaxDimension int    // stored copies are resized to fit this (default 1920)
	JPEGQuality  int    // stored copy JPEG quality (default 85)
	StorageDir   string // directory for stored copies; empty disables storage
}

type ShareConfig struct {
	Secret        string // HMAC secret for share tokens
	ExpiryMinutes int    // token lifetime (default 60)
}

// ThresholdsConfig carries the per-backend similarity threshold policy,
// loaded from the embedded thresholds.yaml.
type ThresholdsConfig struct {
	Cosine struct {
		Default float64 `yaml:"default"`
	} `yaml:"cosine"`
	Ensemble struct {
		Min float64 `yaml:"min"`
		Max float64 `yaml:"max"`
	} `yaml:"ensemble"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean, defaulting when unset.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return b
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL:            os.Getenv("EMBEDDING_URL"),
			AllowFallback:  envBool("EMBEDDING_ALLOW_FALLBACK", true),
			TimeoutSeconds: envInt("EMBEDDING_TIMEOUT_SECONDS", 120),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		RateLimit: RateLimitConfig{
			MaxRequests:   envInt("RATE_LIMIT_MAX_REQUESTS", 10),
			WindowSeconds: envInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Upload: UploadConfig{
			MaxBatchSize: envInt("UPLOAD_MAX_BATCH_SIZE", constants.MaxBatchSize),
			MaxDimension: envInt("UPLOAD_MAX_DIMENSION", constants.MaxImageSize),
			JPEGQuality:  envInt("UPLOAD_JPEG_QUALITY", 85),
			StorageDir:   os.Getenv("UPLOAD_STORAGE_DIR"),
		},
		Share: ShareConfig{
			Secret:        os.Getenv("SHARE_TOKEN_SECRET"),
			ExpiryMinutes: envInt("SHARE_TOKEN_EXPIRY_MINUTES", 60),
		},
		Web: WebConfig{
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		},
		Thresholds: thresholds,
	}
}
