// internal/app/features/relations/routes.go
package relations

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Routes returns the router for doctor-patient relation endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.With(sysauth.RequireRole(models.RoleDoctor, models.RoleAdmin)).Post("/", h.ServeEstablish)
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeView)
	r.Patch("/{id}", h.ServeUpdate)
	r.Post("/{id}/end", h.ServeEnd)
	r.With(sysauth.RequireRole(models.RoleAdmin)).Delete("/{id}", h.ServeDelete)

	return r
}
