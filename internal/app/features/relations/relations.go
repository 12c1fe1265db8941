// internal/app/features/relations/relations.go
package relations

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kneetrack/kneetrack/internal/app/policy/fieldgrant"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/authz"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

type establishRequest struct {
	DoctorID    string                      `json:"doctor_id"`
	PatientID   string                      `json:"patient_id"`
	Type        string                      `json:"type"`
	StartDate   *time.Time                  `json:"start_date"`
	Permissions *models.RelationPermissions `json:"permissions"`
	Notes       string                      `json:"notes"`
}

// ServeEstablish handles POST /api/relations. Doctors establish
// relations for themselves; admins may establish for any doctor.
func (h *Handler) ServeEstablish(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req establishRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	patientID, err := primitive.ObjectIDFromHex(req.PatientID)
	if err != nil {
		httpjson.BadRequest(w, r, "invalid patient_id")
		return
	}

	doctorID := actor.ID
	if authz.IsAdmin(r) {
		if req.DoctorID == "" {
			httpjson.BadRequest(w, r, "doctor_id is required")
			return
		}
		doctorID, err = primitive.ObjectIDFromHex(req.DoctorID)
		if err != nil {
			httpjson.BadRequest(w, r, "invalid doctor_id")
			return
		}
	} else if req.DoctorID != "" && req.DoctorID != actor.ID.Hex() {
		// Doctors cannot establish relations on behalf of colleagues.
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	rel := models.DoctorPatientRelation{
		DoctorID:  doctorID,
		PatientID: patientID,
		Type:      req.Type,
		Notes:     req.Notes,
	}
	if req.StartDate != nil {
		rel.StartDate = *req.StartDate
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Relations.Establish(ctx, rel, req.Permissions)
	if err != nil {
		// Duplicate active relations, bad roles, and bad types are all
		// caller mistakes, same as a failed registration.
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionRelationEstablished, audit.EntityRelations, &created.ID, bson.M{
		"doctor_id":  created.DoctorID.Hex(),
		"patient_id": created.PatientID.Hex(),
		"type":       created.Type,
	})
	httpjson.Created(w, r, created)
}

type listResponse struct {
	Relations  any         `json:"relations"`
	Pagination paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/relations. Patients see their own
// relations, doctors theirs; admins see everything and may filter by
// doctor_id / patient_id.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)
	p := paging.Parse(r)

	filter := relationstore.QueryFilter{
		ActiveOnly: query.Get(r, "active") == "true",
	}
	switch actor.Role {
	case models.RoleDoctor:
		filter.DoctorID = &actor.ID
	case models.RolePatient:
		filter.PatientID = &actor.ID
	case models.RoleAdmin:
		if s := query.Get(r, "doctor_id"); s != "" {
			id, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				httpjson.BadRequest(w, r, "invalid doctor_id")
				return
			}
			filter.DoctorID = &id
		}
		if s := query.Get(r, "patient_id"); s != "" {
			id, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				httpjson.BadRequest(w, r, "invalid patient_id")
				return
			}
			filter.PatientID = &id
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rels, total, err := h.Relations.Query(ctx, filter, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Relations: rels, Pagination: p.MetaFor(total)})
}

// loadVisible loads a relation and enforces that the actor is a party
// to it (or an admin).
func (h *Handler) loadVisible(ctx context.Context, r *http.Request, w http.ResponseWriter) (*models.DoctorPatientRelation, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid relation id")
		return nil, false
	}

	rel, err := h.Relations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Relation not found")
			return nil, false
		}
		httpjson.Internal(w, r, err)
		return nil, false
	}

	actor, _ := sysauth.CurrentUser(r)
	if !authz.IsAdmin(r) && actor.ID != rel.DoctorID && actor.ID != rel.PatientID {
		httpjson.Forbidden(w, r, "Access denied")
		return nil, false
	}
	return rel, true
}

// ServeView handles GET /api/relations/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rel, ok := h.loadVisible(ctx, r, w)
	if !ok {
		return
	}
	httpjson.OK(w, r, rel)
}

// ServeUpdate handles PATCH /api/relations/{id}. Only the doctor party
// or an admin may change the type, permissions, or notes; the parties
// themselves are immutable.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rel, ok := h.loadVisible(ctx, r, w)
	if !ok {
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	if !authz.IsAdmin(r) && actor.ID != rel.DoctorID {
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityRelations, &rel.ID)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	var raw map[string]any
	if err := httpjson.Decode(r, &raw); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	patch := fieldgrant.Filter(actor.Role, fieldgrant.EntityRelations, raw)
	if len(patch) == 0 {
		httpjson.BadRequest(w, r, "no updatable fields in request")
		return
	}

	updated, err := h.Relations.Update(ctx, rel.ID, bson.M(patch))
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	httpjson.OK(w, r, updated)
}

// ServeEnd handles POST /api/relations/{id}/end. Ending twice is safe.
func (h *Handler) ServeEnd(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rel, ok := h.loadVisible(ctx, r, w)
	if !ok {
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	if !authz.IsAdmin(r) && actor.ID != rel.DoctorID {
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityRelations, &rel.ID)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	ended, err := h.Relations.End(ctx, rel.ID)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionRelationEnded, audit.EntityRelations, &rel.ID, nil)
	httpjson.OK(w, r, ended)
}

// ServeDelete handles DELETE /api/relations/{id}. Admin-only hard
// delete; normal flows end relations instead.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid relation id")
		return
	}
	actor, _ := sysauth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Relations.PermanentlyDelete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Relation not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionRelationDeleted, audit.EntityRelations, &id, nil)
	httpjson.OKMessage(w, r, "Relation deleted", nil)
}
