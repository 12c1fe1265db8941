// internal/app/features/messages/routes.go
package messages

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
)

// Routes returns the router for messaging endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Post("/", h.ServeSend)
	r.Get("/", h.ServeConversations)
	r.Get("/unread-count", h.ServeUnreadCount)
	r.Get("/with/{userId}", h.ServeConversation)
	r.Post("/with/{userId}/read", h.ServeMarkRead)
	r.Delete("/{id}", h.ServeDelete)

	return r
}
