// internal/app/features/consultations/routes.go
package consultations

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
)

// Routes returns the router for consultation endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Post("/", h.ServeSchedule)
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeView)
	r.Patch("/{id}", h.ServeUpdate)
	r.Post("/{id}/complete", h.ServeComplete)
	r.Post("/{id}/cancel", h.ServeCancel)
	r.Post("/{id}/no-show", h.ServeNoShow)

	return r
}
