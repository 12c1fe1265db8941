// internal/app/features/forum/routes.go
package forum

import (
	"github.com/go-chi/chi/v5"

	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
)

// Routes returns the router for forum endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(sysauth.RequireSignedIn)

	r.Post("/posts", h.ServeCreatePost)
	r.Get("/posts", h.ServeListPosts)
	r.Get("/posts/{id}", h.ServeViewPost)
	r.Patch("/posts/{id}", h.ServeUpdatePost)
	r.Delete("/posts/{id}", h.ServeDeletePost)
	r.Post("/posts/{id}/like", h.ServeLikePost)

	r.Post("/posts/{id}/comments", h.ServeCreateComment)
	r.Get("/posts/{id}/comments", h.ServeListComments)
	r.Delete("/comments/{commentId}", h.ServeDeleteComment)
	r.Post("/comments/{commentId}/like", h.ServeLikeComment)

	return r
}
