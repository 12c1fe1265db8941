package progress_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	progressfeature "github.com/kneetrack/kneetrack/internal/app/features/progress"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
	"github.com/kneetrack/kneetrack/internal/testutil"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    map[string]any    `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func newTestHandler(t *testing.T) (*progressfeature.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{Mode: "off"})
	return progressfeature.NewHandler(db, auditLogger, logger), testutil.NewFixtures(t, db)
}

func serve(t *testing.T, h http.HandlerFunc, r *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, r)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("response is not a JSON envelope: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, env
}

func generate(t *testing.T, h *progressfeature.Handler, actor *models.User, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/progress/reports", bytes.NewReader([]byte(body)))
	req = sysauth.WithUser(req, actor)
	return serve(t, h.ServeGenerate, req)
}

func seedActivity(t *testing.T, h *progressfeature.Handler, userID primitive.ObjectID, date string, steps, activeMinutes int) {
	t.Helper()
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("bad date %q: %v", date, err)
	}
	if _, err := h.Activity.Create(context.Background(), models.ActivityLog{
		UserID:        userID,
		Date:          day,
		Steps:         steps,
		ActiveMinutes: activeMinutes,
		TargetSteps:   8000,
	}); err != nil {
		t.Fatalf("failed to seed activity log: %v", err)
	}
}

func TestGenerate_ComputesMetricsFromLogs(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	doctor := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)
	f.CreateRelation(ctx, doctor.ID, patient.ID)

	seedActivity(t, h, patient.ID, "2026-03-02", 6000, 30)
	seedActivity(t, h, patient.ID, "2026-03-03", 10000, 50)

	march2, _ := time.Parse("2006-01-02", "2026-03-02")
	march3, _ := time.Parse("2006-01-02", "2026-03-03")
	for i, w := range []float64{80, 78.5} {
		date := []time.Time{march2, march3}[i]
		if _, err := h.Weight.Create(ctx, models.WeightLog{
			UserID:          patient.ID,
			WeightKg:        w,
			MeasurementDate: date,
		}, 170); err != nil {
			t.Fatalf("failed to seed weight log: %v", err)
		}
	}

	rec, env := generate(t, h, &doctor, fmt.Sprintf(
		`{"user_id": %q, "report_type": "monthly", "start_date": "2026-03-01T00:00:00Z", "end_date": "2026-04-01T00:00:00Z"}`,
		patient.ID.Hex()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d\nbody: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	metrics, _ := env.Data["metrics"].(map[string]any)
	if metrics == nil {
		t.Fatalf("metrics missing from response: %v", env.Data)
	}
	if got, _ := metrics["avg_steps"].(float64); got != 8000 {
		t.Errorf("avg_steps = %v, want 8000", got)
	}
	if got, _ := metrics["active_minutes"].(float64); got != 80 {
		t.Errorf("active_minutes = %v, want 80", got)
	}
	if got, _ := metrics["weight_change"].(float64); got != -1.5 {
		t.Errorf("weight_change = %v, want -1.5", got)
	}
	if got, _ := metrics["weight_trend"].(string); got != "losing" {
		t.Errorf("weight_trend = %v, want losing", got)
	}
}

func TestGenerate_ValidationErrors(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	doctor := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)
	f.CreateRelation(ctx, doctor.ID, patient.ID)

	rec, env := generate(t, h, &doctor, fmt.Sprintf(
		`{"user_id": %q, "report_type": "yearly"}`, patient.ID.Hex()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if _, ok := env.Errors["report_type"]; !ok {
		t.Error("missing report_type field error")
	}
	if _, ok := env.Errors["period"]; !ok {
		t.Error("missing period field error")
	}
}

func TestGenerate_UnrelatedDoctorDenied(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	doctor := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)

	rec, _ := generate(t, h, &doctor, fmt.Sprintf(
		`{"user_id": %q, "report_type": "weekly", "start_date": "2026-03-01T00:00:00Z", "end_date": "2026-03-08T00:00:00Z"}`,
		patient.ID.Hex()))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestListReports_ScopedByRole(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	doctor := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)
	f.CreateRelation(ctx, doctor.ID, patient.ID)

	body := fmt.Sprintf(
		`{"user_id": %q, "report_type": "weekly", "start_date": "2026-03-01T00:00:00Z", "end_date": "2026-03-08T00:00:00Z"}`,
		patient.ID.Hex())
	if rec, _ := generate(t, h, &doctor, body); rec.Code != http.StatusCreated {
		t.Fatalf("generate failed: %d", rec.Code)
	}

	// The patient sees the report about them.
	req := sysauth.WithUser(httptest.NewRequest(http.MethodGet, "/api/progress/reports", nil), &patient)
	rec, env := serve(t, h.ServeListReports, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("patient list status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	if reps, _ := env.Data["reports"].([]any); len(reps) != 1 {
		t.Errorf("patient sees %d reports, want 1", len(reps))
	}

	// An uninvolved doctor sees nothing.
	other := f.CreateDoctor(ctx)
	req = sysauth.WithUser(httptest.NewRequest(http.MethodGet, "/api/progress/reports", nil), &other)
	_, env = serve(t, h.ServeListReports, req)
	if reps, _ := env.Data["reports"].([]any); len(reps) != 0 {
		t.Errorf("uninvolved doctor sees %d reports, want 0", len(reps))
	}
}

func TestProgressionAndAnalytics(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	patient := f.CreatePatient(ctx)

	// Nothing recorded yet: progression is 404, analytics has no data.
	req := sysauth.WithUser(httptest.NewRequest(http.MethodGet, "/api/progress/progression", nil), &patient)
	if rec, _ := serve(t, h.ServeProgression, req); rec.Code != http.StatusNotFound {
		t.Fatalf("empty progression status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	req = sysauth.WithUser(httptest.NewRequest(http.MethodGet, "/api/progress/analytics", nil), &patient)
	rec, env := serve(t, h.ServeAnalytics, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty analytics status = %d", rec.Code)
	}
	if hasData, _ := env.Data["has_data"].(bool); hasData {
		t.Error("has_data = true with no recorded grades")
	}

	// Two grades a year apart, worsening by 2: rapid progression, high risk.
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, g := range []int{1, 3} {
		if err := h.Progress.RecordPrediction(ctx, patient.ID, models.KLGradePoint{
			Grade:       g,
			Confidence:  0.9,
			PredictedAt: t0.AddDate(i, 0, 0),
		}); err != nil {
			t.Fatalf("failed to record grade: %v", err)
		}
	}

	req = sysauth.WithUser(httptest.NewRequest(http.MethodGet, "/api/progress/analytics", nil), &patient)
	rec, env = serve(t, h.ServeAnalytics, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	if got, _ := env.Data["current_grade"].(float64); got != 3 {
		t.Errorf("current_grade = %v, want 3", got)
	}
	if got, _ := env.Data["trend"].(string); got != models.TrendWorsening {
		t.Errorf("trend = %v, want %q", got, models.TrendWorsening)
	}
	if got, _ := env.Data["rate"].(string); got != "rapid" {
		t.Errorf("rate = %v, want rapid", got)
	}
	if got, _ := env.Data["risk_level"].(string); got != "high" {
		t.Errorf("risk_level = %v, want high", got)
	}
}
