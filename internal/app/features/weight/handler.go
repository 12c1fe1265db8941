// internal/app/features/weight/handler.go
package weight

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/features/shared/patientscope"
	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	weightstore "github.com/kneetrack/kneetrack/internal/app/store/weight"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Handler serves weight measurement endpoints.
type Handler struct {
	Weight    *weightstore.Store
	Users     *userstore.Store
	Relations *relationstore.Store
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

// NewHandler creates the weight handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	users := userstore.New(db)
	return &Handler{
		Weight:    weightstore.New(db),
		Users:     users,
		Relations: relationstore.New(db, users),
		Audit:     audit,
		Log:       logger,
	}
}

type createRequest struct {
	WeightKg        float64    `json:"weight_kg"`
	MeasurementDate *time.Time `json:"measurement_date"`
	Source          string     `json:"source"`
}

// ServeCreate handles POST /api/weight. BMI is derived from the
// caller's recorded height, when known.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	if req.WeightKg <= 0 {
		httpjson.BadRequest(w, r, "weight_kg must be positive")
		return
	}

	log := models.WeightLog{
		UserID:   actor.ID,
		WeightKg: req.WeightKg,
		Source:   req.Source,
	}
	if req.MeasurementDate != nil {
		log.MeasurementDate = *req.MeasurementDate
	}

	var heightCm float64
	if actor.MedicalInfo != nil {
		heightCm = actor.MedicalInfo.HeightCm
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Weight.Create(ctx, log, heightCm)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionWeightLogged, audit.EntityWeightLogs, &created.ID, nil)
	httpjson.Created(w, r, created)
}

type listResponse struct {
	Logs       any         `json:"logs"`
	Pagination paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/weight with optional user_id, from, to.
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

	logs, total, err := h.Weight.ListByUser(ctx, target, from, to, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Logs: logs, Pagination: p.MetaFor(total)})
}

// ServeLatest handles GET /api/weight/latest.
func (h *Handler) ServeLatest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := patientscope.Target(ctx, w, r, h.Relations, patientaccess.PermViewActivity)
	if !ok {
		return
	}

	latest, err := h.Weight.Latest(ctx, target)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	if latest == nil {
		httpjson.NotFound(w, r, "No weight measurements recorded")
		return
	}
	httpjson.OK(w, r, latest)
}

// ServeDelete handles DELETE /api/weight/{id}. Owner or admin only.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid log id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	log, err := h.Weight.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Weight log not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}

	actor, _ := sysauth.CurrentUser(r)
	if actor.Role == models.RoleDoctor || (actor.Role == models.RolePatient && actor.ID != log.UserID) {
		h.Audit.AccessDenied(ctx, r, actor, audit.EntityWeightLogs, &log.ID)
		httpjson.Forbidden(w, r, "Access denied")
		return
	}

	if err := h.Weight.Delete(ctx, log.ID); err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Weight log deleted", nil)
}
