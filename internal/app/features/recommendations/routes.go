// internal/app/features/recommendations/routes.go
package recommendations

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Routes returns the router for recommendation endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.With(sysauth.RequireRole(models.RoleDoctor, models.RoleAdmin)).Post("/", h.ServeCreate)
	r.Get("/", h.ServeList)
	r.Get("/latest", h.ServeLatest)
	r.Get("/{id}", h.ServeView)
	r.With(sysauth.RequireRole(models.RoleDoctor, models.RoleAdmin)).Patch("/{id}", h.ServeUpdate)
	r.With(sysauth.RequireRole(models.RoleDoctor, models.RoleAdmin)).Delete("/{id}", h.ServeDelete)

	return r
}
