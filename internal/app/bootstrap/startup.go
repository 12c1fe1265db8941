// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	klgradestore "github.com/kneetrack/kneetrack/internal/app/store/klgrades"
	"github.com/kneetrack/kneetrack/internal/app/system/ratelimit"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/app/system/workers"
)

// retentionWorker prunes expired audit entries in the background.
// Started here, stopped in Shutdown.
var retentionWorker *workers.AuditRetention

// apiLimiter is the API-wide request throttle, created in BuildHandler
// and stopped in Shutdown.
var apiLimiter *ratelimit.Limiter

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("handler timeouts configured from environment", zap.Int("overrides", n))
	}

	// The KL grade reference scale must exist before any prediction or
	// recommendation is stored against it.
	if err := klgradestore.New(deps.MongoDatabase).Seed(ctx); err != nil {
		return err
	}

	retentionWorker = workers.NewAuditRetention(
		audit.New(deps.MongoDatabase), logger, 24*time.Hour, appCfg.AuditRetention)
	retentionWorker.Start()

	return nil
}
