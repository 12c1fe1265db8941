// internal/app/features/klgrades/routes.go
package klgrades

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Routes returns the router for the KL grade reference scale. Reads
// are open; the scale is published reference material.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{grade}", h.ServeView)
	r.With(sysauth.RequireSignedIn, sysauth.RequireRole(models.RoleAdmin)).
		Patch("/{grade}", h.ServeUpdate)

	return r
}
