// internal/app/features/medications/doses.go
package medications

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

type doseRequest struct {
	TakenAt *time.Time `json:"taken_at"`
	Status  string     `json:"status"`
	Notes   string     `json:"notes"`
}

// ServeLogDose handles POST /api/medications/{id}/doses. Only the
// patient the reminder belongs to (or an admin) records doses.
func (h *Handler) ServeLogDose(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid reminder id")
		return
	}

	var req doseRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Medications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Medication reminder not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}

	actor, _ := sysauth.CurrentUser(r)
	if actor.Role != models.RoleAdmin && actor.ID != m.UserID {
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityMedications, &m.ID)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	dose := models.DoseLog{Status: req.Status, Notes: req.Notes}
	if req.TakenAt != nil {
		dose.TakenAt = *req.TakenAt
	}

	updated, err := h.Medications.LogDose(ctx, m.ID, dose)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Medication reminder not found")
			return
		}
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	httpjson.OK(w, r, updated)
}
