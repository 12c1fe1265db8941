// internal/app/features/auditlogs/routes.go
package auditlogs

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Routes returns the router for audit trail endpoints. /me is open to
// any signed-in user; everything else is admin only.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Get("/me", h.ServeListMine)

	r.Group(func(r chi.Router) {
		r.Use(sysauth.RequireRole(models.RoleAdmin))
		r.Get("/", h.ServeList)
		r.Get("/export", h.ServeExport)
		r.Get("/{id}", h.ServeView)
		r.Post("/cleanup", h.ServeCleanup)
	})

	return r
}
