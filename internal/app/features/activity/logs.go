// internal/app/features/activity/logs.go
package activity

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
	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

type createRequest struct {
	Date           *time.Time           `json:"date"`
	Steps          int                  `json:"steps"`
	DistanceKm     float64              `json:"distance_km"`
	CaloriesBurned int                  `json:"calories_burned"`
	ActiveMinutes  int                  `json:"active_minutes"`
	KneeBand       *models.KneeBandData `json:"knee_band"`
	TargetSteps    int                  `json:"target_steps"`
}

// ServeCreate handles POST /api/activity. Patients log their own days.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	if req.Steps < 0 || req.ActiveMinutes < 0 {
		httpjson.BadRequest(w, r, "steps and active_minutes must be non-negative")
		return
	}

	log := models.ActivityLog{
		UserID:         actor.ID,
		Steps:          req.Steps,
		DistanceKm:     req.DistanceKm,
		CaloriesBurned: req.CaloriesBurned,
		ActiveMinutes:  req.ActiveMinutes,
		KneeBand:       req.KneeBand,
		TargetSteps:    req.TargetSteps,
	}
	if req.Date != nil {
		log.Date = *req.Date
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Activity.Create(ctx, log)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionActivityLogged, audit.EntityActivityLogs, &created.ID, nil)
	httpjson.Created(w, r, created)
}

type listResponse struct {
	Logs       any         `json:"logs"`
	Pagination paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/activity with optional user_id, from, to.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := h.targetPatient(ctx, w, r, patientaccess.PermViewActivity)
	if !ok {
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		httpjson.BadRequest(w, r, "from/to must be RFC 3339 or YYYY-MM-DD dates")
		return
	}
	p := paging.Parse(r)

	logs, total, err := h.Activity.ListByUser(ctx, target, from, to, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Logs: logs, Pagination: p.MetaFor(total)})
}

// loadOwned loads a log and checks the actor may touch it with perm.
func (h *Handler) loadOwned(ctx context.Context, w http.ResponseWriter, r *http.Request, perm patientaccess.Permission) (*models.ActivityLog, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid log id")
		return nil, false
	}

	log, err := h.Activity.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Activity log not found")
			return nil, false
		}
		httpjson.Internal(w, r, err)
		return nil, false
	}

	actor, _ := sysauth.CurrentUser(r)
	dec, err := patientaccess.Check(ctx, h.Relations, actor, log.UserID, perm)
	if err != nil {
		httpjson.Internal(w, r, err)
		return nil, false
	}
	if !dec.Allowed {
		httpjson.Forbidden(w, r, "Access denied")
		return nil, false
	}
	return log, true
}

// ServeView handles GET /api/activity/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	log, ok := h.loadOwned(ctx, w, r, patientaccess.PermViewActivity)
	if !ok {
		return
	}
	httpjson.OK(w, r, log)
}

// ServeUpdate handles PATCH /api/activity/{id}. Only the owning
// patient (or an admin) may edit; doctors read, they don't rewrite a
// patient's movement history.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	log, ok := h.loadOwned(ctx, w, r, patientaccess.PermViewActivity)
	if !ok {
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	if actor.Role == models.RoleDoctor {
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityActivityLogs, &log.ID)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	var raw map[string]any
	if err := httpjson.Decode(r, &raw); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	patch := fieldgrant.Filter(actor.Role, fieldgrant.EntityActivityLogs, raw)
	if len(patch) == 0 {
		httpjson.BadRequest(w, r, "no updatable fields in request")
		return
	}

	updated, err := h.Activity.Update(ctx, log.ID, bson.M(patch))
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, updated)
}

// ServeDelete handles DELETE /api/activity/{id}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	log, ok := h.loadOwned(ctx, w, r, patientaccess.PermViewActivity)
	if !ok {
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	if actor.Role == models.RoleDoctor {
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityActivityLogs, &log.ID)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	if err := h.Activity.Delete(ctx, log.ID); err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Activity log deleted", nil)
}
