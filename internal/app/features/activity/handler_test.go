package activity_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	activityfeature "github.com/kneetrack/kneetrack/internal/app/features/activity"
	"github.com/kneetrack/kneetrack/internal/app/store/audit"
	"github.com/kneetrack/kneetrack/internal/app/system/auditlog"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/domain/models"
	"github.com/kneetrack/kneetrack/internal/testutil"
)

type envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func newTestHandler(t *testing.T) (*activityfeature.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{Mode: "off"})
	return activityfeature.NewHandler(db, auditLogger, logger), testutil.NewFixtures(t, db)
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

func createLog(t *testing.T, h *activityfeature.Handler, actor *models.User, body string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/activity", bytes.NewReader([]byte(body)))
	req = sysauth.WithUser(req, actor)
	rec, env := serve(t, h.ServeCreate, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d\nbody: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	return env.Data
}

func TestCreateAndList(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	patient := f.CreatePatient(ctx)

	created := createLog(t, h, &patient, `{"steps": 8500, "active_minutes": 45, "distance_km": 6.2}`)
	if created["steps"] != float64(8500) {
		t.Errorf("created steps = %v, want 8500", created["steps"])
	}
	if created["user_id"] != patient.ID.Hex() {
		t.Errorf("created user_id = %v, want %s", created["user_id"], patient.ID.Hex())
	}

	req := sysauth.WithUser(httptest.NewRequest(http.MethodGet, "/api/activity", nil), &patient)
	rec, env := serve(t, h.ServeList, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d\nbody: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	logs, _ := env.Data["logs"].([]any)
	if len(logs) != 1 {
		t.Fatalf("listed %d logs, want 1", len(logs))
	}
}

func TestCreate_RejectsNegativeSteps(t *testing.T) {
	h, f := newTestHandler(t)
	patient := f.CreatePatient(context.Background())

	req := httptest.NewRequest(http.MethodPost, "/api/activity", bytes.NewReader([]byte(`{"steps": -10}`)))
	req = sysauth.WithUser(req, &patient)
	rec, _ := serve(t, h.ServeCreate, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestList_DoctorScope(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	patient := f.CreatePatient(ctx)
	related := f.CreateDoctor(ctx)
	stranger := f.CreateDoctor(ctx)
	f.CreateRelation(ctx, related.ID, patient.ID)

	createLog(t, h, &patient, `{"steps": 4000}`)

	// The treating doctor sees the patient's logs.
	req := httptest.NewRequest(http.MethodGet, "/api/activity?user_id="+patient.ID.Hex(), nil)
	req = sysauth.WithUser(req, &related)
	rec, env := serve(t, h.ServeList, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("related doctor status = %d, want %d\nbody: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if logs, _ := env.Data["logs"].([]any); len(logs) != 1 {
		t.Errorf("related doctor sees %d logs, want 1", len(logs))
	}

	// A doctor with no relation to the patient is refused.
	req = httptest.NewRequest(http.MethodGet, "/api/activity?user_id="+patient.ID.Hex(), nil)
	req = sysauth.WithUser(req, &stranger)
	rec, _ = serve(t, h.ServeList, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("unrelated doctor status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestUpdate_PatientEditsOwnLog(t *testing.T) {
	h, f := newTestHandler(t)
	patient := f.CreatePatient(context.Background())

	created := createLog(t, h, &patient, `{"steps": 1000}`)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("created log has no id: %v", created)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/activity/"+id, bytes.NewReader([]byte(`{"steps": 2000}`)))
	req = testutil.WithChiURLParam(req, "id", id)
	req = sysauth.WithUser(req, &patient)
	rec, env := serve(t, h.ServeUpdate, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want %d\nbody: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if env.Data["steps"] != float64(2000) {
		t.Errorf("updated steps = %v, want 2000", env.Data["steps"])
	}
}

func TestUpdate_DoctorReadOnly(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	patient := f.CreatePatient(ctx)
	doctor := f.CreateDoctor(ctx)
	f.CreateRelation(ctx, doctor.ID, patient.ID)

	created := createLog(t, h, &patient, `{"steps": 1000}`)
	id, _ := created["id"].(string)

	req := httptest.NewRequest(http.MethodPatch, "/api/activity/"+id, bytes.NewReader([]byte(`{"steps": 0}`)))
	req = testutil.WithChiURLParam(req, "id", id)
	req = sysauth.WithUser(req, &doctor)
	rec, _ := serve(t, h.ServeUpdate, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("doctor update status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestDelete(t *testing.T) {
	h, f := newTestHandler(t)
	patient := f.CreatePatient(context.Background())

	created := createLog(t, h, &patient, `{"steps": 1000}`)
	id, _ := created["id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/api/activity/"+id, nil)
	req = testutil.WithChiURLParam(req, "id", id)
	req = sysauth.WithUser(req, &patient)
	rec, _ := serve(t, h.ServeDelete, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want %d\nbody: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/activity/"+id, nil)
	req = testutil.WithChiURLParam(req, "id", id)
	req = sysauth.WithUser(req, &patient)
	rec, _ = serve(t, h.ServeView, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("view after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
