// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	activityfeature "github.com/kneetrack/kneetrack/internal/app/features/activity"
	auditlogsfeature "github.com/kneetrack/kneetrack/internal/app/features/auditlogs"
	authfeature "github.com/kneetrack/kneetrack/internal/app/features/auth"
	consultationsfeature "github.com/kneetrack/kneetrack/internal/app/features/consultations"
	dietfeature "github.com/kneetrack/kneetrack/internal/app/features/diet"
	forumfeature "github.com/kneetrack/kneetrack/internal/app/features/forum"
	healthfeature "github.com/kneetrack/kneetrack/internal/app/features/health"
	klgradesfeature "github.com/kneetrack/kneetrack/internal/app/features/klgrades"
	medicationsfeature "github.com/kneetrack/kneetrack/internal/app/features/medications"
	messagesfeature "github.com/kneetrack/kneetrack/internal/app/features/messages"
	notificationsfeature "github.com/kneetrack/kneetrack/internal/app/features/notifications"
	predictionsfeature "github.com/kneetrack/kneetrack/internal/app/features/predictions"
	progressfeature "github.com/kneetrack/kneetrack/internal/app/features/progress"
	recommendationsfeature "github.com/kneetrack/kneetrack/internal/app/features/recommendations"
	relationsfeature "github.com/kneetrack/kneetrack/internal/app/features/relations"
	usersfeature "github.com/kneetrack/kneetrack/internal/app/features/users"
	weightfeature "github.com/kneetrack/kneetrack/internal/app/features/weight"
	xraysfeature "github.com/kneetrack/kneetrack/internal/app/features/xrays"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/ratelimit"
	"github.com/kneetrack/kneetrack/internal/app/system/recovery"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The router is JSON-only: every feature
// mounts under /api, with /health left open for load balancers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	tokens := sysauth.NewTokens(appCfg.JWTSecret, appCfg.JWTExpiry)
	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{})
	fileStore := storage.NewLocal(appCfg.UploadPath, appCfg.UploadURL)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Per-IP request throttle across the whole API. Stopped in Shutdown.
	limiter := ratelimit.New(appCfg.RateLimitMax, appCfg.RateLimitWindow)
	apiLimiter = limiter
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Allow(ratelimit.ClientIP(req)) {
				httpjson.TooManyRequests(w, req)
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	// Resolves the bearer token into the current user for all handlers.
	r.Use(sysauth.LoadUser(tokens, userstore.New(db)))

	// A panicking handler still answers with the JSON 500 envelope and
	// leaves an audit trace. Sits inside LoadUser so the audit entry can
	// name the actor.
	r.Use(recovery.Middleware(logger, auditLogger))

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Locally stored X-ray files.
	r.Handle("/uploads/*", fileserver.Handler("/uploads", appCfg.UploadPath))

	r.Route("/api", func(api chi.Router) {
		authHandler := authfeature.NewHandler(db, tokens, auditLogger, appCfg.AdminRegistrationSecret, logger)
		api.Mount("/auth", authfeature.Routes(authHandler))

		usersHandler := usersfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/users", usersfeature.Routes(usersHandler))

		relationsHandler := relationsfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/relations", relationsfeature.Routes(relationsHandler))

		activityHandler := activityfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/activity", activityfeature.Routes(activityHandler))

		dietHandler := dietfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/diet", dietfeature.Routes(dietHandler))

		weightHandler := weightfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/weight", weightfeature.Routes(weightHandler))

		medicationsHandler := medicationsfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/medications", medicationsfeature.Routes(medicationsHandler))

		consultationsHandler := consultationsfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/consultations", consultationsfeature.Routes(consultationsHandler))

		messagesHandler := messagesfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/messages", messagesfeature.Routes(messagesHandler))

		forumHandler := forumfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/forum", forumfeature.Routes(forumHandler))

		notificationsHandler := notificationsfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/notifications", notificationsfeature.Routes(notificationsHandler))

		xraysHandler := xraysfeature.NewHandler(db, fileStore, appCfg.UploadMaxBytes, auditLogger, logger)
		api.Mount("/xrays", xraysfeature.Routes(xraysHandler))

		predictionsHandler := predictionsfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/predictions", predictionsfeature.Routes(predictionsHandler))

		progressHandler := progressfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/progress", progressfeature.Routes(progressHandler))

		klgradesHandler := klgradesfeature.NewHandler(db, logger)
		api.Mount("/kl-grades", klgradesfeature.Routes(klgradesHandler))

		recommendationsHandler := recommendationsfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/recommendations", recommendationsfeature.Routes(recommendationsHandler))

		auditlogsHandler := auditlogsfeature.NewHandler(db, auditLogger, logger)
		api.Mount("/audit-logs", auditlogsfeature.Routes(auditlogsHandler))
	})

	return r, nil
}
