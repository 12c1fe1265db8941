// internal/app/features/consultations/transitions.go
package consultations

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kneetrack/kneetrack/internal/app/policy/fieldgrant"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// ServeView handles GET /api/consultations/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	con := h.loadParty(ctx, w, r)
	if con == nil {
		return
	}
	httpjson.OK(w, r, con)
}

// ServeUpdate handles PATCH /api/consultations/{id}. Rescheduling is
// only possible while the consultation is still pending.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	con := h.loadParty(ctx, w, r)
	if con == nil {
		return
	}

	var raw map[string]any
	if err := httpjson.Decode(r, &raw); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	granted := fieldgrant.Filter(actor.Role, fieldgrant.EntityConsultations, raw)
	if len(granted) == 0 {
		httpjson.BadRequest(w, r, "no updatable fields in request")
		return
	}
	patch := bson.M{}
	for k, v := range granted {
		patch[k] = v
	}

	updated, err := h.Consultations.Update(ctx, con.ID, patch)
	if h.mutationErr(ctx, w, r, con.ID, err) {
		return
	}
	httpjson.OK(w, r, updated)
}

type completeRequest struct {
	Findings *models.ClinicalFindings `json:"findings"`
	Notes    string                   `json:"notes"`
}

// ServeComplete handles POST /api/consultations/{id}/complete. Only the
// assigned doctor records the outcome.
func (h *Handler) ServeComplete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	con := h.loadParty(ctx, w, r)
	if con == nil {
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	if actor.Role != models.RoleDoctor {
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityConsultations, &con.ID)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	var req completeRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	updated, err := h.Consultations.Complete(ctx, con.ID, actor.ID, req.Findings, req.Notes)
	if h.mutationErr(ctx, w, r, con.ID, err) {
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionConsultCompleted, audit.EntityConsultations, &con.ID,
		map[string]any{"patient_id": con.PatientID.Hex()})
	httpjson.OK(w, r, updated)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// ServeCancel handles POST /api/consultations/{id}/cancel. Either
// party may cancel while the consultation is pending.
func (h *Handler) ServeCancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	con := h.loadParty(ctx, w, r)
	if con == nil {
		return
	}

	var req cancelRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	updated, err := h.Consultations.Cancel(ctx, con.ID, req.Reason)
	if h.mutationErr(ctx, w, r, con.ID, err) {
		return
	}
	httpjson.OK(w, r, updated)
}

// ServeNoShow handles POST /api/consultations/{id}/no-show. Assigned
// doctor only.
func (h *Handler) ServeNoShow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	con := h.loadParty(ctx, w, r)
	if con == nil {
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	if actor.Role != models.RoleDoctor {
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityConsultations, &con.ID)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	updated, err := h.Consultations.MarkNoShow(ctx, con.ID, actor.ID)
	if h.mutationErr(ctx, w, r, con.ID, err) {
		return
	}
	httpjson.OK(w, r, updated)
}
