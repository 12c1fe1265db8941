// internal/app/features/predictions/handler.go
package predictions

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/features/shared/patientscope"
	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	predictionstore "github.com/kneetrack/kneetrack/internal/app/store/predictions"
	progressstore "github.com/kneetrack/kneetrack/internal/app/store/progress"
	relationstore "github.com/kneetrack/kneetrack/internal/app/store/relations"
	userstore "github.com/kneetrack/kneetrack/internal/app/store/users"
	xraystore "github.com/kneetrack/kneetrack/internal/app/store/xrays"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
	"github.com/kneetrack/kneetrack/internal/app/system/paging"
	"github.com/kneetrack/kneetrack/internal/app/system/timeouts"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Handler stores and serves model inference results. Inference itself
// happens outside this service; we keep the outputs.
type Handler struct {
	Predictions *predictionstore.Store
	XRays       *xraystore.Store
	Relations   *relationstore.Store
	Progress    *progressstore.Store
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

// NewHandler creates the predictions handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	users := userstore.New(db)
	return &Handler{
		Predictions: predictionstore.New(db),
		XRays:       xraystore.New(db),
		Relations:   relationstore.New(db, users),
		Progress:    progressstore.New(db),
		Audit:       audit,
		Log:         logger,
	}
}

type createRequest struct {
	XRayImageID string                      `json:"xray_image_id"`
	OAStatus    string                      `json:"oa_status"`
	KLGrade     int                         `json:"kl_grade"`
	Confidence  float64                     `json:"confidence"`
	RiskScore   float64                     `json:"risk_score"`
	Findings    models.RadiographicFindings `json:"findings"`
	Model       models.ModelMetadata        `json:"model"`
}

// ServeCreate handles POST /api/predictions. Records the inference
// output for an uploaded image and marks the image completed.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	xrayID, err := primitive.ObjectIDFromHex(req.XRayImageID)
	if err != nil {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"xray_image_id": "xray_image_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	img, err := h.XRays.GetByID(ctx, xrayID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "X-ray image not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	if actor.Role != models.RoleAdmin &&
		!patientscope.Allowed(ctx, w, r, h.Relations, img.UserID, patientaccess.PermViewPredictions) {
		return
	}

	created, err := h.Predictions.Create(ctx, models.AIPrediction{
		XRayImageID: img.ID,
		UserID:      img.UserID,
		OAStatus:    req.OAStatus,
		KLGrade:     req.KLGrade,
		Confidence:  req.Confidence,
		RiskScore:   req.RiskScore,
		Findings:    req.Findings,
		Model:       req.Model,
	})
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	if _, err := h.XRays.SetStatus(ctx, img.ID, models.XRayCompleted); err != nil {
		h.Log.Warn("failed to mark x-ray completed",
			zap.String("xray_id", img.ID.Hex()), zap.Error(err))
	}

	if err := h.Progress.RecordPrediction(ctx, img.UserID, models.KLGradePoint{
		Grade:        created.KLGrade,
		Confidence:   created.Confidence,
		PredictionID: created.ID,
		PredictedAt:  created.CreatedAt,
	}); err != nil {
		h.Log.Warn("failed to record disease progression point",
			zap.String("user_id", img.UserID.Hex()), zap.Error(err))
	}

	h.Audit.Action(ctx, r, actor, audit.ActionPredictionGenerated, audit.EntityPredictions, &created.ID,
		map[string]any{
			"patient_id": img.UserID.Hex(),
			"kl_grade":   created.KLGrade,
			"oa_status":  created.OAStatus,
		})
	httpjson.Created(w, r, created)
}

type listResponse struct {
	Predictions any         `json:"predictions"`
	Pagination  paging.Meta `json:"pagination"`
}

// ServeList handles GET /api/predictions with optional user_id.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := patientscope.Target(ctx, w, r, h.Relations, patientaccess.PermViewPredictions)
	if !ok {
		return
	}
	p := paging.Parse(r)

	preds, total, err := h.Predictions.ListByUser(ctx, target, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Predictions: preds, Pagination: p.MetaFor(total)})
}

// ServeLatest handles GET /api/predictions/latest.
func (h *Handler) ServeLatest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := patientscope.Target(ctx, w, r, h.Relations, patientaccess.PermViewPredictions)
	if !ok {
		return
	}

	latest, err := h.Predictions.Latest(ctx, target)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	if latest == nil {
		httpjson.NotFound(w, r, "No predictions recorded")
		return
	}
	httpjson.OK(w, r, latest)
}

// loadVisible fetches a prediction and checks the caller may see it.
func (h *Handler) loadVisible(ctx context.Context, w http.ResponseWriter, r *http.Request) *models.AIPrediction {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid prediction id")
		return nil
	}
	p, err := h.Predictions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Prediction not found")
			return nil
		}
		httpjson.Internal(w, r, err)
		return nil
	}
	if !patientscope.Allowed(ctx, w, r, h.Relations, p.UserID, patientaccess.PermViewPredictions) {
		return nil
	}
	return p
}

// ServeView handles GET /api/predictions/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p := h.loadVisible(ctx, w, r)
	if p == nil {
		return
	}
	httpjson.OK(w, r, p)
}

// ServeByXRay handles GET /api/predictions/by-xray/{xrayId}.
func (h *Handler) ServeByXRay(w http.ResponseWriter, r *http.Request) {
	xrayID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "xrayId"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid image id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Predictions.GetByXRay(ctx, xrayID)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	if p == nil {
		httpjson.NotFound(w, r, "Prediction not found")
		return
	}
	if !patientscope.Allowed(ctx, w, r, h.Relations, p.UserID, patientaccess.PermViewPredictions) {
		return
	}
	httpjson.OK(w, r, p)
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

// ServeReview handles POST /api/predictions/{id}/review. A doctor's
// sign-off on the model output.
func (h *Handler) ServeReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p := h.loadVisible(ctx, w, r)
	if p == nil {
		return
	}

	var req reviewRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}
	if req.Notes == "" {
		httpjson.ValidationError(w, r, "Validation failed", map[string]string{"notes": "notes are required"})
		return
	}

	actor, _ := sysauth.CurrentUser(r)
	reviewed, err := h.Predictions.Review(ctx, p.ID, actor.ID, req.Notes)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Prediction not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, reviewed)
}
