// internal/app/features/progress/handler.go
package progress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/features/shared/patientscope"
	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	activitystore "github.com/kneetrack/kneetrack/internal/app/store/activity"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	progressstore "github.com/kneetrack/kneetrack/internal/app/store/progress"
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

// Handler serves progress reports and disease progression analytics.
// Report metrics are computed from the patient's own activity and
// weight logs over the report period.
type Handler struct {
	Progress  *progressstore.Store
	Activity  *activitystore.Store
	Weight    *weightstore.Store
	Relations *relationstore.Store
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

// NewHandler creates the progress handler.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Progress:  progressstore.New(db),
		Activity:  activitystore.New(db),
		Weight:    weightstore.New(db),
		Relations: relationstore.New(db, userstore.New(db)),
		Audit:     audit,
		Log:       logger,
	}
}

type listResponse struct {
	Reports    any         `json:"reports"`
	Pagination paging.Meta `json:"pagination"`
}

// ServeListReports handles GET /api/progress/reports. Patients see
// their own reports, doctors the ones they generated; admins see
// everything and may filter by user_id.
func (h *Handler) ServeListReports(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)
	p := paging.Parse(r)

	filter := progressstore.ReportFilter{ReportType: query.Get(r, "report_type")}
	switch actor.Role {
	case models.RolePatient:
		filter.UserID = &actor.ID
	case models.RoleDoctor:
		filter.GeneratedBy = &actor.ID
	case models.RoleAdmin:
		if s := query.Get(r, "user_id"); s != "" {
			id, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				httpjson.BadRequest(w, r, "invalid user_id")
				return
			}
			filter.UserID = &id
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	reps, total, err := h.Progress.QueryReports(ctx, filter, p.Skip(), p.Limit64())
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, listResponse{Reports: reps, Pagination: p.MetaFor(total)})
}

type generateRequest struct {
	UserID     string     `json:"user_id"`
	ReportType string     `json:"report_type"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
}

// ServeGenerate handles POST /api/progress/reports. Doctors need an
// activity-view grant on the patient; metrics come from the tracked
// logs in the period.
func (h *Handler) ServeGenerate(w http.ResponseWriter, r *http.Request) {
	actor, _ := sysauth.CurrentUser(r)

	var req generateRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	fieldErrs := map[string]string{}
	patientID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		fieldErrs["user_id"] = "user_id is required"
	}
	if !models.IsValidReportType(req.ReportType) {
		fieldErrs["report_type"] = `report_type must be "weekly"|"monthly"|"quarterly"`
	}
	if req.StartDate == nil || req.EndDate == nil {
		fieldErrs["period"] = "start_date and end_date are required"
	} else if !req.EndDate.After(*req.StartDate) {
		fieldErrs["period"] = "end_date must be after start_date"
	}
	if len(fieldErrs) > 0 {
		httpjson.ValidationError(w, r, "Validation failed", fieldErrs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	if !patientscope.Allowed(ctx, w, r, h.Relations, patientID, patientaccess.PermViewActivity) {
		return
	}

	metrics, err := h.buildMetrics(ctx, patientID, *req.StartDate, *req.EndDate)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}

	created, err := h.Progress.CreateReport(ctx, models.ProgressReport{
		UserID:      patientID,
		ReportType:  req.ReportType,
		Period:      models.ReportPeriod{StartDate: *req.StartDate, EndDate: *req.EndDate},
		Metrics:     metrics,
		Insights:    buildInsights(metrics),
		GeneratedBy: actor.ID,
	})
	if err != nil {
		httpjson.BadRequest(w, r, err.Error())
		return
	}

	h.Audit.Action(ctx, r, actor, audit.ActionReportGenerated, audit.EntityProgressReports, &created.ID,
		map[string]any{
			"patient_id":  patientID.Hex(),
			"report_type": created.ReportType,
		})
	httpjson.Created(w, r, created)
}

// buildMetrics aggregates activity and weight data over the window.
func (h *Handler) buildMetrics(ctx context.Context, patientID primitive.ObjectID, start, end time.Time) (models.ProgressMetrics, error) {
	summary, err := h.Activity.Summarize(ctx, patientID, start, end)
	if err != nil {
		return models.ProgressMetrics{}, err
	}

	m := models.ProgressMetrics{
		AvgAdherence:  summary.AvgAdherence,
		AvgSteps:      summary.AvgSteps,
		ActiveMinutes: summary.ActiveMinutes,
		WeightTrend:   "stable",
	}

	// ListByUser sorts newest first, so the slice runs latest to earliest.
	logs, _, err := h.Weight.ListByUser(ctx, patientID, &start, &end, 0, 0)
	if err != nil {
		return models.ProgressMetrics{}, err
	}
	if len(logs) >= 2 {
		latest, earliest := logs[0], logs[len(logs)-1]
		m.WeightChange = latest.WeightKg - earliest.WeightKg
		m.BMIChange = latest.BMI - earliest.BMI
		switch {
		case m.WeightChange < -0.5:
			m.WeightTrend = "losing"
		case m.WeightChange > 0.5:
			m.WeightTrend = "gaining"
		}
	}
	return m, nil
}

// buildInsights derives the narrative sections from the metrics.
func buildInsights(m models.ProgressMetrics) models.ProgressInsights {
	var ins models.ProgressInsights

	if m.AvgAdherence >= 80 {
		ins.Achievements = append(ins.Achievements, "Consistent medication and exercise adherence")
	} else if m.AvgAdherence > 0 && m.AvgAdherence < 50 {
		ins.Concerns = append(ins.Concerns, "Low adherence to the care plan")
		ins.Recommendations = append(ins.Recommendations, "Review reminder settings and discuss barriers to adherence")
	}

	if m.AvgSteps >= 7000 {
		ins.Achievements = append(ins.Achievements, fmt.Sprintf("Averaging %.0f steps per day", m.AvgSteps))
	} else if m.AvgSteps > 0 {
		ins.Recommendations = append(ins.Recommendations, "Increase daily low-impact activity toward 7000 steps")
	}

	switch m.WeightTrend {
	case "losing":
		ins.Achievements = append(ins.Achievements, fmt.Sprintf("Weight down %.1f kg over the period", -m.WeightChange))
	case "gaining":
		ins.Concerns = append(ins.Concerns, fmt.Sprintf("Weight up %.1f kg over the period", m.WeightChange))
		ins.Recommendations = append(ins.Recommendations, "Revisit the diet plan; weight gain increases joint load")
	}
	return ins
}

// ServeViewReport handles GET /api/progress/reports/{id}.
func (h *Handler) ServeViewReport(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid report id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rep, err := h.Progress.GetReportByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Progress report not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	if !patientscope.Allowed(ctx, w, r, h.Relations, rep.UserID, patientaccess.PermViewActivity) {
		return
	}
	httpjson.OK(w, r, rep)
}

// ServeDeleteReport handles DELETE /api/progress/reports/{id}. Admin only.
func (h *Handler) ServeDeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid report id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Progress.DeleteReport(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "Progress report not found")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Progress report deleted", nil)
}

// ServeProgression handles GET /api/progress/progression with optional
// user_id. The history accumulates as predictions are stored.
func (h *Handler) ServeProgression(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := patientscope.Target(ctx, w, r, h.Relations, patientaccess.PermViewPredictions)
	if !ok {
		return
	}

	p, err := h.Progress.GetProgression(ctx, target)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	if p == nil {
		httpjson.NotFound(w, r, "No progression data recorded")
		return
	}
	httpjson.OK(w, r, p)
}

// ServeAnalytics handles GET /api/progress/analytics with optional
// user_id. Unlike ServeProgression this answers 200 with has_data=false
// when nothing is recorded yet.
func (h *Handler) ServeAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	target, ok := patientscope.Target(ctx, w, r, h.Relations, patientaccess.PermViewPredictions)
	if !ok {
		return
	}

	a, err := h.Progress.Analytics(ctx, target)
	if err != nil {
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OK(w, r, a)
}

// ServeDeleteProgression handles DELETE /api/progress/progression/{userId}.
// Admin only.
func (h *Handler) ServeDeleteProgression(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		httpjson.BadRequest(w, r, "invalid user id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Progress.DeleteProgression(ctx, userID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.NotFound(w, r, "No progression data recorded")
			return
		}
		httpjson.Internal(w, r, err)
		return
	}
	httpjson.OKMessage(w, r, "Progression data deleted", nil)
}
