// internal/app/features/weight/routes.go
package weight

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
)

// Routes returns the router for weight endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Post("/", h.ServeCreate)
	r.Get("/", h.ServeList)
	r.Get("/latest", h.ServeLatest)
	r.Delete("/{id}", h.ServeDelete)

	return r
}
