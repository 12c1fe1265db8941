// internal/app/features/consultations/schedule.go
package consultations

import (
	"context"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	consultationstore "github.com/kneetrack/kneetrack/internal/app/store/consultations"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

type scheduleRequest struct {
	DoctorID      string              `json:"doctor_id"`
	PatientID     string              `json:"patient_id"`
	Type          string              `json:"type"`
	ScheduledTime time.Time           `json:"scheduled_time"`
	Duration      time.Duration       `json:"duration"`
	Meeting       *models.MeetingInfo `json:"meeting"`
	Notes         string              `json:"notes"`
}

// ServeSchedule handles POST /api/consultations. The caller fills in
// the counterpart: patients name the doctor, doctors name the patient.
// Both parties must have an active relation.
func (h *Handler) ServeSchedule(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req scheduleRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	con := models.Consultation{
		Type:          req.Type,
		ScheduledTime: req.ScheduledTime,
		Duration:      req.Duration,
		Meeting:       req.Meeting,
		Notes:         req.Notes,
	}

	switch actor.Role {
	case models.RolePatient:
		doctorID, err := primitive.ObjectIDFromHex(req.DoctorID)
		if err != nil {
			httpjson.ValidationError(w, r, "Validation failed", map[string]string{"doctor_id": "doctor_id is required"})
			return
		}
		con.DoctorID, con.PatientID = doctorID, actor.ID
	case models.RoleDoctor:
		patientID, err := primitive.ObjectIDFromHex(req.PatientID)
		if err != nil {
			httpjson.ValidationError(w, r, "Validation failed", map[string]string{"patient_id": "patient_id is required"})
			return
		}
		con.DoctorID, con.PatientID = actor.ID, patientID
	default: // admin
		doctorID, derr := primitive.ObjectIDFromHex(req.DoctorID)
		patientID, perr := primitive.ObjectIDFromHex(req.PatientID)
		if derr != nil || perr != nil {
			httpjson.ValidationError(w, r, "Validation failed", map[string]string{
				"doctor_id":  "doctor_id and patient_id are required",
				"patient_id": "doctor_id and patient_id are required",
			})
			return
		}
		con.DoctorID, con.PatientID = doctorID, patientID
	}

	if actor.Role != models.RoleAdmin {
		rel, err := h.Relations.ActiveRelation(ctx, con.DoctorID, con.PatientID)
		if err != nil {
			httpjson.Internal(w, r, err)
			return
		}
		if rel == nil {
			httpjson.Forbidden(w, r, "Access denied")
			return
		}
	}

	created, err := h.Consultations.Schedule(ctx, con)
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionConsultScheduled, audit.EntityConsultations, &created.ID,
		map[string]any{
			"doctor_id":      created.DoctorID.Hex(),
			"patient_id":     created.PatientID.Hex(),
			"scheduled_time": created.ScheduledTime,
		})
	httpjson.Created(w, r, created)
}

type listResponse struct {
	Consultations any         `json:"consultations"`
	Pagination    paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/consultations. Doctors and patients see
// their own; admins may filter by doctor_id and patient_id.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)
	q := r.URL.Query()

	var filter consultationstore.QueryFilter
	switch actor.Role {
	case models.RoleDoctor:
		filter.DoctorID = actor.ID
	case models.RolePatient:
		filter.PatientID = actor.ID
	default:
		if raw := q.Get("doctor_id"); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				httpjson.BadRequest(w, r, "invalid doctor_id")
				return
			}
			filter.DoctorID = id
		}
		if raw := q.Get("patient_id"); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				httpjson.BadRequest(w, r, "invalid patient_id")
				return
			}
			filter.PatientID = id
		}
	}
	filter.Status = q.Get("status")
	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		if raw := q.Get(name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				httpjson.BadRequest(w, r, name+" must be an RFC 3339 timestamp")
				return
			}
			*dst = &t
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p := paging.Parse(r)
	cons, total, err := h.Consultations.List(ctx, filter, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	httpjson.OK(w, r, listResponse{Consultations: cons, Pagination: p.MetaFor(total)})
}
