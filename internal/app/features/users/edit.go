// internal/app/features/users/edit.go
package users

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kneetrack/kneetrack/internal/app/policy/fieldgrant"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/authz"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// ServeUpdate handles PATCH /api/users/{id}. Users edit their own
// profile; admins edit anyone and may additionally change email, role,
// and active. The field grant table decides which keys survive.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid user id")
		return
	}
	actor, _ := sysauth.CurrentUser(r)

	if !authz.IsSelf(r, id) && !authz.IsAdmin(r) {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityUsers, &id)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	var raw map[string]any
	if err := httpjson.Decode(r, &raw); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	patch := fieldgrant.Filter(actor.Role, fieldgrant.EntityUsers, raw)
	if len(patch) == 0 {
		httpjson.BadRequest(w, r, "no updatable fields in request")
		return
	}
	if dob, ok := patch["date_of_birth"].(string); ok {
		t, err := time.Parse(time.RFC3339, dob)
		if err != nil {
			httpjson.ValidationError(w, r, "Validation failed", map[string]string{
				"date_of_birth": "must be an RFC 3339 timestamp",
			})
			return
		}
		patch["date_of_birth"] = t
	}
	if g, ok := patch["gender"].(string); ok && !models.IsValidGender(g) {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{
			"gender": `gender must be "male", "female", or "other"`,
		})
		return
	}
	if role, ok := patch["role"].(string); ok && !models.IsValidRole(role) {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{
			"role": `role must be "patient", "doctor", or "admin"`,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Users.Update(ctx, id, bson.M(patch))
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			httpjson.NotFound(w, r, "User not found")
		case errors.Is(err, userstore.ErrDuplicateEmail):
			httpjson.ValidationError(w, r, "Validation failed", map[string]string{"email": err.Error()})
		default:
			httpjson.Internal(w, r, err)
		}
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionProfileUpdated, audit.EntityUsers, &id, bson.M(patch))
	httpjson.OK(w, r, user)
}

// ServeDeactivate handles DELETE /api/users/{id}. Admin only; the
// account is soft-deleted so clinical history survives.
func (h *Handler) ServeDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid user id")
		return
	}
	actor, _ := sysauth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.Deactivate(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "User not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionUserDeleted, audit.EntityUsers, &id, nil)
	httpjson.OKMessage(w, r, "User deactivated", nil)
}
