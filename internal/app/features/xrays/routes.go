// internal/app/features/xrays/routes.go
package xrays

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Routes returns the router for X-ray image endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Post("/", h.ServeUpload)
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeView)
	r.With(sysauth.RequireRole(models.RoleDoctor, models.RoleAdmin)).Post("/{id}/status", h.ServeSetStatus)
	r.Delete("/{id}", h.ServeDelete)

	return r
}
