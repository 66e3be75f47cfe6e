// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Upload constants
const (
	// MaxUploadSize is the in-memory parse limit for multipart uploads (512 MB)
	MaxUploadSize = 512 << 20

	// MaxBatchSize is the maximum number of photos per upload request
	MaxBatchSize = 100
)

// Search constants
const (
	// DefaultSearchLimit caps results when the caller omits a limit
	DefaultSearchLimit = 50

	// MaxSearchLimit is the largest result limit a caller may request
	MaxSearchLimit = 500
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) for stored copies
	MaxImageSize = 1920
)
