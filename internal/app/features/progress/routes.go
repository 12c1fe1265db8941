// internal/app/features/progress/routes.go
package progress

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Routes returns the router for progress endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Get("/reports", h.ServeListReports)
	r.Get("/reports/{id}", h.ServeViewReport)
	r.With(sysauth.RequireRole(models.RoleDoctor, models.RoleAdmin)).
		Post("/reports", h.ServeGenerate)
	r.With(sysauth.RequireRole(models.RoleAdmin)).
		Delete("/reports/{id}", h.ServeDeleteReport)

	r.Get("/progression", h.ServeProgression)
	r.Get("/analytics", h.ServeAnalytics)
	r.With(sysauth.RequireRole(models.RoleAdmin)).
		Delete("/progression/{userId}", h.ServeDeleteProgression)

	return r
}
