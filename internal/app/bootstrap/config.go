// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for KneeTrack.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: KNEETRACK_MONGO_URI, KNEETRACK_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "kneetrack", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	// Bearer tokens
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "HMAC signing secret for bearer tokens (must be strong in production)"},
	{Name: "jwt_expiry", Default: "168h", Desc: "Bearer token lifetime (e.g., 168h for 7 days)"},

	// Admin registration
	{Name: "admin_registration_secret", Default: "", Desc: "Shared secret required to register admin accounts (empty disables admin registration)"},

	// CORS
	{Name: "allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated list of allowed CORS origins"},

	// Rate limiting
	{Name: "rate_limit_window", Default: "15m", Desc: "Rate limit window duration"},
	{Name: "rate_limit_max", Default: 100, Desc: "Max requests per client IP per window"},

	// X-ray upload storage
	{Name: "upload_max_bytes", Default: 10 << 20, Desc: "Max X-ray upload size in bytes (default 10 MB)"},
	{Name: "upload_path", Default: "./uploads/xrays", Desc: "Local storage path for X-ray files"},
	{Name: "upload_url", Default: "/files/xrays", Desc: "URL prefix for serving local X-ray files"},

	// Audit retention
	{Name: "audit_retention", Default: "17520h", Desc: "Audit entry retention window (default 2 years)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "KNEETRACK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTExpiry: appValues.Duration("jwt_expiry", 7*24*time.Hour),

		AdminRegistrationSecret: appValues.String("admin_registration_secret"),

		AllowedOrigins: splitOrigins(appValues.String("allowed_origins")),

		RateLimitWindow: appValues.Duration("rate_limit_window", 15*time.Minute),
		RateLimitMax:    appValues.Int("rate_limit_max"),

		UploadMaxBytes: int64(appValues.Int("upload_max_bytes")),
		UploadPath:     appValues.String("upload_path"),
		UploadURL:      appValues.String("upload_url"),

		AuditRetention: appValues.Duration("audit_retention", 2*365*24*time.Hour),
	}

	return coreCfg, appCfg, nil
}

// splitOrigins parses the comma-separated allowed_origins value.
func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// KneeTrack validates the MongoDB URI format and token settings to catch
// configuration errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if len(appCfg.JWTSecret) < 32 {
		return fmt.Errorf("jwt_secret must be at least 32 characters")
	}
	if appCfg.JWTExpiry <= 0 {
		return fmt.Errorf("jwt_expiry must be positive")
	}
	if appCfg.UploadMaxBytes <= 0 {
		return fmt.Errorf("upload_max_bytes must be positive")
	}

	if coreCfg.Env == "prod" && appCfg.AdminRegistrationSecret == "" {
		logger.Warn("admin_registration_secret is empty; admin registration is disabled")
	}

	return nil
}
