// internal/app/features/recommendations/handler.go
package recommendations

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/features/shared/patientscope"
	"github.com/kneetrack/kneetrack/internal/app/policy/fieldgrant"
	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	recommendationstore "github.com/kneetrack/kneetrack/internal/app/store/recommendations"
	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Handler serves per-patient treatment recommendation endpoints.
type Handler struct {
	Recommendations *recommendationstore.Store
	Relations       *relationstore.Store
	Audit           *auditlog.Logger
	Log             *zap.Logger
}

// NewHandler creates the recommendations handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	users := userstore.New(db)
	return &Handler{
		Recommendations: recommendationstore.New(db),
		Relations:       relationstore.New(db, users),
		Audit:           audit,
		Log:             logger,
	}
}

type createRequest struct {
	UserID     string                      `json:"user_id"`
	KLGrade    int                         `json:"kl_grade"`
	Exercise   []models.ExercisePlanItem   `json:"exercise"`
	Diet       []models.DietPlanItem       `json:"diet"`
	Medication []models.MedicationPlanItem `json:"medication"`
	Lifestyle  []models.LifestylePlanItem  `json:"lifestyle"`
}

// ServeCreate handles POST /api/recommendations. Doctors write plans
// for related patients; the relation must carry the modify grant.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	patientID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"user_id": "user_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !patientscope.Allowed(ctx, w, r, h.Relations, patientID, patientaccess.PermModifyRecommendations) {
		return
	}

	created, err := h.Recommendations.Create(ctx, models.Recommendation{
		UserID:     patientID,
		KLGrade:    req.KLGrade,
		Exercise:   req.Exercise,
		Diet:       req.Diet,
		Medication: req.Medication,
		Lifestyle:  req.Lifestyle,
		CreatedBy:  actor.ID,
	})
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionRecommendationCreated, audit.EntityRecommendations, &created.ID,
		map[string]any{"patient_id": patientID.Hex(), "kl_grade": created.KLGrade})
	httpjson.Created(w, r, created)
}

type listResponse struct {
	Recommendations any         `json:"recommendations"`
	Pagination      paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/recommendations with optional user_id.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := patientscope.Target(ctx, w, r, h.Relations, patientaccess.PermViewPredictions)
	if !ok {
		return
	}
	p := paging.Parse(r)

	recs, total, err := h.Recommendations.ListByUser(ctx, target, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Recommendations: recs, Pagination: p.MetaFor(total)})
}

// ServeLatest handles GET /api/recommendations/latest.
func (h *Handler) ServeLatest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := patientscope.Target(ctx, w, r, h.Relations, patientaccess.PermViewPredictions)
	if !ok {
		return
	}

	latest, err := h.Recommendations.Latest(ctx, target)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	if latest == nil {
		httpjson.NotFound(w, r, "No recommendations recorded")
		return
	}
	httpjson.OK(w, r, latest)
}

// loadVisible fetches a recommendation and checks view access.
func (h *Handler) loadVisible(ctx context.Context, w http.ResponseWriter, r *http.Request, perm patientaccess.Permission) *models.Recommendation {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid recommendation id")
		return nil
	}
	rec, err := h.Recommendations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Recommendation not found")
			return nil
		}
		httpjson.Internal(w, r, err)
		return nil
	}
	if !patientscope.Allowed(ctx, w, r, h.Relations, rec.UserID, perm) {
		return nil
	}
	return rec
}

// ServeView handles GET /api/recommendations/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rec := h.loadVisible(ctx, w, r, patientaccess.PermViewPredictions)
	if rec == nil {
		return
	}
	httpjson.OK(w, r, rec)
}

// ServeUpdate handles PATCH /api/recommendations/{id}.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rec := h.loadVisible(ctx, w, r, patientaccess.PermModifyRecommendations)
	if rec == nil {
		return
	}

	var raw map[string]any
	if err := httpjson.Decode(r, &raw); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	actor, _ := sysauth.CurrentUser(r)
	granted := fieldgrant.Filter(actor.Role, fieldgrant.EntityRecommendations, raw)
	if len(granted) == 0 {
		httpjson.BadRequest(w, r, "no updatable fields in request")
		return
	}
	patch := bson.M{}
	for k, v := range granted {
		patch[k] = v
	}

	updated, err := h.Recommendations.Update(ctx, rec.ID, patch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Recommendation not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionRecommendationUpdated, audit.EntityRecommendations, &rec.ID, granted)
	httpjson.OK(w, r, updated)
}

// ServeDelete handles DELETE /api/recommendations/{id}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rec := h.loadVisible(ctx, w, r, patientaccess.PermModifyRecommendations)
	if rec == nil {
		return
	}

	if err := h.Recommendations.Delete(ctx, rec.ID); err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Recommendation deleted", nil)
}
