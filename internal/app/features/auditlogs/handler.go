// internal/app/features/auditlogs/handler.go
package auditlogs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
)

// Handler exposes the audit trail to administrators.
type Handler struct {
	Audits *audit.Store
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

// NewHandler creates the audit logs handler.
func NewHandler(db *mongo.Database, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Audits: audit.New(db),
		Audit:  auditLogger,
		Log:    logger,
	}
}

// filterFromQuery builds a store filter from request query params.
// Reports false after writing the response when a param is malformed.
func filterFromQuery(w http.ResponseWriter, r *http.Request) (audit.QueryFilter, bool) {
	q := r.URL.Query()
	var f audit.QueryFilter

	if raw := q.Get("user_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			httpjson.BadRequest(w, r, "invalid user_id")
			return f, false
		}
		f.UserID = &id
	}
	if raw := q.Get("entity_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			httpjson.BadRequest(w, r, "invalid entity_id")
			return f, false
		}
		f.EntityID = &id
	}
	f.Action = q.Get("action")
	f.EntityType = q.Get("entity_type")
	f.Status = q.Get("status")

	for name, dst := range map[string]**time.Time{"from": &f.StartTime, "to": &f.EndTime} {
		if raw := q.Get(name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				httpjson.BadRequest(w, r, name+" must be an RFC 3339 timestamp")
				return f, false
			}
			*dst = &t
		}
	}
	return f, true
}

type listResponse struct {
	Entries    any         `json:"entries"`
	Pagination paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/audit-logs.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f, ok := filterFromQuery(w, r)
	if !ok {
		return
	}
	p := paging.Parse(r)
	f.Limit = p.Limit64()
	f.Offset = p.Skip()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	entries, err := h.Audits.Query(ctx, f)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	total, err := h.Audits.CountByFilter(ctx, f)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Entries: entries, Pagination: p.MetaFor(total)})
}

// ServeListMine handles GET /api/audit-logs/me. Any signed-in user may
// review the trail of their own actions; the filter is pinned to the
// actor regardless of query params.
func (h *Handler) ServeListMine(w http.ResponseWriter, r *http.Request) {
	f, ok := filterFromQuery(w, r)
	if !ok {
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	f.UserID = &actor.ID

	p := paging.Parse(r)
	f.Limit = p.Limit64()
	f.Offset = p.Skip()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	entries, err := h.Audits.Query(ctx, f)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	total, err := h.Audits.CountByFilter(ctx, f)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Entries: entries, Pagination: p.MetaFor(total)})
}

// ServeView handles GET /api/audit-logs/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid entry id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := h.Audits.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Audit entry not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, e)
}

type cleanupRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

// ServeCleanup handles POST /api/audit-logs/cleanup. Removes entries
// older than the requested number of days.
func (h *Handler) ServeCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	if req.OlderThanDays < 1 {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"older_than_days": "older_than_days must be at least 1"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -req.OlderThanDays)
	deleted, err := h.Audits.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, map[string]any{"deleted": deleted, "cutoff": cutoff})
}
