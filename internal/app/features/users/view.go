// internal/app/features/users/view.go
package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
)

// ServeView handles GET /api/users/{id}. Accessible to the user
// themselves, admins, and doctors with an active care relation.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid user id")
		return
	}
	actor, _ := sysauth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	dec, err := patientaccess.Check(ctx, h.Relations, actor, id, patientaccess.PermViewPredictions)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	if !dec.Allowed {
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	user, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "User not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}

	httpjson.OK(w, r, user)
}
