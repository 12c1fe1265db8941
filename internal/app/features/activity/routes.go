// internal/app/features/activity/routes.go
package activity

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Routes returns the router for activity log endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.With(sysauth.RequireRole(models.RolePatient, models.RoleAdmin)).Post("/", h.ServeCreate)
	r.Get("/", h.ServeList)
	r.Get("/summary", h.ServeSummary)
	r.Get("/export", h.ServeExport)
	r.Get("/{id}", h.ServeView)
	r.Patch("/{id}", h.ServeUpdate)
	r.Delete("/{id}", h.ServeDelete)

	return r
}
