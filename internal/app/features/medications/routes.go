// internal/app/features/medications/routes.go
package medications

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
)

// Routes returns the router for medication reminder endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Post("/", h.ServeCreate)
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeView)
	r.Patch("/{id}", h.ServeUpdate)
	r.Post("/{id}/doses", h.ServeLogDose)
	r.Post("/{id}/end", h.ServeEnd)
	r.Delete("/{id}", h.ServeDelete)

	return r
}
