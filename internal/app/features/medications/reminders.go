// internal/app/features/medications/reminders.go
package medications

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kneetrack/kneetrack/internal/app/features/shared/patientscope"
	"github.com/kneetrack/kneetrack/internal/app/policy/fieldgrant"
	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

type createRequest struct {
	PatientID string     `json:"patient_id"`
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"`
	Frequency string     `json:"frequency"`
	Times     []string   `json:"times"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// ServeCreate handles POST /api/medications. Patients create reminders
// for themselves; doctors prescribe for patients they have a relation
// with the prescribe permission for.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	if req.Name == "" {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"name": "name is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m := models.MedicationReminder{
		UserID:    actor.ID,
		Name:      req.Name,
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
		Times:     req.Times,
		EndDate:   req.EndDate,
	}
	if req.StartDate != nil {
		m.StartDate = *req.StartDate
	}

	if req.PatientID != "" {
		patientID, err := primitive.ObjectIDFromHex(req.PatientID)
		if err != nil {
			httpjson.BadRequest(w, r, "invalid patient_id")
			return
		}
		if patientID != actor.ID {
			if !patientscope.Allowed(ctx, w, r, h.Relations, patientID, patientaccess.PermPrescribe) {
				return
			}
			m.UserID = patientID
			m.PrescribedBy = &actor.ID
		}
	} else if actor.Role == models.RoleDoctor {
		httpjson.BadRequest(w, r, "patient_id is required when prescribing")
		return
	}

	created, err := h.Medications.Create(ctx, m)
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionMedicationCreated, audit.EntityMedications, &created.ID,
		map[string]any{"patient_id": created.UserID.Hex(), "name": created.Name})
	httpjson.Created(w, r, created)
}

type listResponse struct {
	Medications any         `json:"medications"`
	Pagination  paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/medications with optional user_id and active.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := patientscope.Target(ctx, w, r, h.Relations, patientaccess.PermViewActivity)
	if !ok {
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	p := paging.Parse(r)

	meds, total, err := h.Medications.ListByUser(ctx, target, activeOnly, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Medications: meds, Pagination: p.MetaFor(total)})
}

// loadVisible fetches a reminder and checks the caller may see it.
// Writes the response on failure.
func (h *Handler) loadVisible(ctx context.Context, w http.ResponseWriter, r *http.Request, perm patientaccess.Permission) *models.MedicationReminder {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid reminder id")
		return nil
	}
	m, err := h.Medications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Medication reminder not found")
			return nil
		}
		httpjson.Internal(w, r, err)
		return nil
	}
	if !patientscope.Allowed(ctx, w, r, h.Relations, m.UserID, perm) {
		return nil
	}
	return m
}

// ServeView handles GET /api/medications/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m := h.loadVisible(ctx, w, r, patientaccess.PermViewActivity)
	if m == nil {
		return
	}
	httpjson.OK(w, r, m)
}

// ServeUpdate handles PATCH /api/medications/{id}.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m := h.loadVisible(ctx, w, r, patientaccess.PermPrescribe)
	if m == nil {
		return
	}

	var raw map[string]any
	if err := httpjson.Decode(r, &raw); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	granted := fieldgrant.Filter(actor.Role, fieldgrant.EntityMedications, raw)
	if len(granted) == 0 {
		httpjson.BadRequest(w, r, "no updatable fields in request")
		return
	}
	patch := bson.M{}
	for k, v := range granted {
		patch[k] = v
	}

	updated, err := h.Medications.Update(ctx, m.ID, patch)
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

// ServeEnd handles POST /api/medications/{id}/end.
func (h *Handler) ServeEnd(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m := h.loadVisible(ctx, w, r, patientaccess.PermPrescribe)
	if m == nil {
		return
	}
	if err := h.Medications.End(ctx, m.ID); err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Medication reminder ended", nil)
}

// ServeDelete handles DELETE /api/medications/{id}. Owner or admin.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid reminder id")
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

	if err := h.Medications.Delete(ctx, m.ID); err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Medication reminder deleted", nil)
}
