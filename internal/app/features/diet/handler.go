// internal/app/features/diet/handler.go
package diet

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/features/shared/patientscope"
	"github.com/kneetrack/kneetrack/internal/app/policy/fieldgrant"
	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	dietstore "github.com/kneetrack/kneetrack/internal/app/store/diet"
	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Handler serves diet log endpoints.
type Handler struct {
	Diet      *dietstore.Store
	Relations *relationstore.Store
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

// NewHandler creates the diet handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Diet:      dietstore.New(db),
		Relations: relationstore.New(db, userstore.New(db)),
		Audit:     audit,
		Log:       logger,
	}
}

type createRequest struct {
	Date   *time.Time    `json:"date"`
	Meals  []models.Meal `json:"meals"`
	Source string        `json:"source"`
}

// ServeCreate handles POST /api/diet.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	if len(req.Meals) == 0 {
		httpjson.BadRequest(w, r, "at least one meal is required")
		return
	}

	log := models.DietLog{
		UserID: actor.ID,
		Meals:  req.Meals,
		Source: req.Source,
	}
	if req.Date != nil {
		log.Date = *req.Date
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Diet.Create(ctx, log)
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionDietLogged, audit.EntityDietLogs, &created.ID, nil)
	httpjson.Created(w, r, created)
}

type listResponse struct {
	Logs       any         `json:"logs"`
	Pagination paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/diet with optional user_id, from, to.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := patientscope.Target(ctx, w, r, h.Relations, patientaccess.PermViewActivity)
	if !ok {
		return
	}
	from, to, err := patientscope.DateRange(r)
	if err != nil {
		httpjson.BadRequest(w, r, "from/to must be RFC 3339 or YYYY-MM-DD dates")
		return
	}
	p := paging.Parse(r)

	logs, total, err := h.Diet.ListByUser(ctx, target, from, to, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Logs: logs, Pagination: p.MetaFor(total)})
}

func (h *Handler) loadOwned(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.DietLog, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid log id")
		return nil, false
	}

	log, err := h.Diet.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Diet log not found")
			return nil, false
		}
		httpjson.Internal(w, r, err)
		return nil, false
	}

	if !patientscope.Allowed(ctx, w, r, h.Relations, log.UserID, patientaccess.PermViewActivity) {
		return nil, false
	}
	return log, true
}

// ServeView handles GET /api/diet/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	log, ok := h.loadOwned(ctx, w, r)
	if !ok {
		return
	}
	httpjson.OK(w, r, log)
}

// ServeUpdate handles PATCH /api/diet/{id}. Owner or admin only.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	log, ok := h.loadOwned(ctx, w, r)
	if !ok {
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	if actor.Role == models.RoleDoctor {
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityDietLogs, &log.ID)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	var raw map[string]any
	if err := httpjson.Decode(r, &raw); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	patch := fieldgrant.Filter(actor.Role, fieldgrant.EntityDietLogs, raw)
	if len(patch) == 0 {
		httpjson.BadRequest(w, r, "no updatable fields in request")
		return
	}

	updated, err := h.Diet.Update(ctx, log.ID, bson.M(patch))
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	httpjson.OK(w, r, updated)
}

// ServeDelete handles DELETE /api/diet/{id}. Owner or admin only.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	log, ok := h.loadOwned(ctx, w, r)
	if !ok {
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	if actor.Role == models.RoleDoctor {
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityDietLogs, &log.ID)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	if err := h.Diet.Delete(ctx, log.ID); err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Diet log deleted", nil)
}
