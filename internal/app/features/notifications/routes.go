// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Routes returns the router for notification endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.With(sysauth.RequireRole(models.RoleDoctor, models.RoleAdmin)).Post("/", h.ServeCreate)
	r.With(sysauth.RequireRole(models.RoleAdmin)).Post("/broadcast", h.ServeBroadcast)
	r.Get("/", h.ServeList)
	r.Get("/unread-count", h.ServeUnreadCount)
	r.Post("/read-all", h.ServeMarkAllRead)
	r.Post("/{id}/read", h.ServeMarkRead)
	r.Delete("/{id}", h.ServeDelete)

	return r
}
