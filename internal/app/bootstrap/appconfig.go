// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP ports, TLS,
// logging level, request timeouts). AppConfig is everything specific to
// KneeTrack: database, token signing, upload storage, and the knobs the
// audit and rate-limit layers need.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Bearer-token configuration
	JWTSecret string        // HMAC signing secret for bearer tokens
	JWTExpiry time.Duration // Token lifetime (default 7 days)

	// Admin registration gate
	AdminRegistrationSecret string // Shared secret required to register an admin account

	// CORS
	AllowedOrigins []string // Origins allowed to call the API

	// Rate limiting (per client IP)
	RateLimitWindow time.Duration // Sliding window duration
	RateLimitMax    int           // Max requests per window

	// X-ray upload storage
	UploadMaxBytes int64  // Max accepted upload size (default 10 MB)
	UploadPath     string // Local storage path for X-ray files
	UploadURL      string // URL prefix for serving local X-ray files

	// Audit retention
	AuditRetention time.Duration // Age beyond which audit entries expire
}
