// internal/app/features/auth/routes.go
package auth

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
)

// Routes returns the router for authentication endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.ServeRegister)
	r.Post("/login", h.ServeLogin)

	r.Group(func(r chi.Router) {
		r.Use(sysauth.RequireSignedIn)
		r.Get("/me", h.ServeMe)
		r.Post("/change-password", h.ServeChangePassword)
		r.Post("/logout", h.ServeLogout)
	})

	return r
}
