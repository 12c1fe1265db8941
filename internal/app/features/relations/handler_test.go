package relations_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	relationsfeature "github.com/kneetrack/kneetrack/internal/app/features/relations"
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

func newTestHandler(t *testing.T) (*relationsfeature.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{Mode: "off"})
	return relationsfeature.NewHandler(db, auditLogger, logger), testutil.NewFixtures(t, db)
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

func establish(t *testing.T, h *relationsfeature.Handler, actor *models.User, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/relations", bytes.NewReader([]byte(body)))
	req = sysauth.WithUser(req, actor)
	return serve(t, h.ServeEstablish, req)
}

func TestEstablish_Doctor(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	doctor := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)

	rec, env := establish(t, h, &doctor, fmt.Sprintf(`{"patient_id": %q}`, patient.ID.Hex()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d\nbody: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if env.Data["doctor_id"] != doctor.ID.Hex() {
		t.Errorf("doctor_id = %v, want the acting doctor", env.Data["doctor_id"])
	}
	if env.Data["type"] != models.RelationPrimaryCare {
		t.Errorf("type = %v, want %q by default", env.Data["type"], models.RelationPrimaryCare)
	}
}

func TestEstablish_NarrowedPermissions(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	doctor := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)

	rec, env := establish(t, h, &doctor, fmt.Sprintf(
		`{"patient_id": %q, "permissions": {"view_predictions": true, "view_activity_data": true, "modify_recommendations": false, "prescribe_medications": false}}`,
		patient.ID.Hex()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d\nbody: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	perms, _ := env.Data["permissions"].(map[string]any)
	if perms == nil {
		t.Fatalf("permissions missing from response: %v", env.Data)
	}
	if got, _ := perms["prescribe_medications"].(bool); got {
		t.Error("prescribe_medications = true, want the narrowed grant kept")
	}
	if got, _ := perms["view_predictions"].(bool); !got {
		t.Error("view_predictions = false, want true")
	}

	// Without an explicit grant the relation gets everything.
	other := f.CreatePatient(ctx)
	_, env = establish(t, h, &doctor, fmt.Sprintf(`{"patient_id": %q}`, other.ID.Hex()))
	perms, _ = env.Data["permissions"].(map[string]any)
	if got, _ := perms["prescribe_medications"].(bool); !got {
		t.Error("default prescribe_medications = false, want true")
	}
}

func TestEstablish_DuplicateActiveRelation(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	doctor := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)
	body := fmt.Sprintf(`{"patient_id": %q}`, patient.ID.Hex())

	if rec, _ := establish(t, h, &doctor, body); rec.Code != http.StatusCreated {
		t.Fatalf("first establish failed: %d", rec.Code)
	}
	if rec, _ := establish(t, h, &doctor, body); rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestEstablish_DoctorCannotActForColleague(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	doctor := f.CreateDoctor(ctx)
	colleague := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)

	rec, _ := establish(t, h, &doctor, fmt.Sprintf(
		`{"doctor_id": %q, "patient_id": %q}`, colleague.ID.Hex(), patient.ID.Hex()))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestEstablish_AdminNamesDoctor(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	admin := f.CreateAdmin(ctx)
	doctor := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)

	rec, env := establish(t, h, &admin, fmt.Sprintf(
		`{"doctor_id": %q, "patient_id": %q, "type": "specialist"}`, doctor.ID.Hex(), patient.ID.Hex()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d\nbody: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if env.Data["doctor_id"] != doctor.ID.Hex() {
		t.Errorf("doctor_id = %v, want the named doctor", env.Data["doctor_id"])
	}

	// Admin must name a doctor explicitly.
	rec, _ = establish(t, h, &admin, fmt.Sprintf(`{"patient_id": %q}`, patient.ID.Hex()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status without doctor_id = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestEstablish_RejectsNonPatientTarget(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	doctor := f.CreateDoctor(ctx)
	otherDoctor := f.CreateDoctor(ctx)

	rec, _ := establish(t, h, &doctor, fmt.Sprintf(`{"patient_id": %q}`, otherDoctor.ID.Hex()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestList_ScopedByRole(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	doctor := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)
	other := f.CreatePatient(ctx)
	f.CreateRelation(ctx, doctor.ID, patient.ID)
	f.CreateRelation(ctx, doctor.ID, other.ID)

	req := sysauth.WithUser(httptest.NewRequest(http.MethodGet, "/api/relations", nil), &doctor)
	rec, env := serve(t, h.ServeList, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("doctor list status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	if rels, _ := env.Data["relations"].([]any); len(rels) != 2 {
		t.Errorf("doctor sees %d relations, want 2", len(rels))
	}

	req = sysauth.WithUser(httptest.NewRequest(http.MethodGet, "/api/relations", nil), &patient)
	rec, env = serve(t, h.ServeList, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("patient list status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	if rels, _ := env.Data["relations"].([]any); len(rels) != 1 {
		t.Errorf("patient sees %d relations, want 1", len(rels))
	}
}

func TestDelete_AuditsAsRelationDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	audits := audit.New(db)
	h := relationsfeature.NewHandler(db, auditlog.New(audits, logger, auditlog.Config{Mode: "db"}), logger)
	f := testutil.NewFixtures(t, db)

	ctx := context.Background()
	admin := f.CreateAdmin(ctx)
	doctor := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)
	rel := f.CreateRelation(ctx, doctor.ID, patient.ID)

	req := httptest.NewRequest(http.MethodDelete, "/api/relations/"+rel.ID.Hex(), nil)
	req = testutil.WithChiURLParam(req, "id", rel.ID.Hex())
	req = sysauth.WithUser(req, &admin)
	rec, _ := serve(t, h.ServeDelete, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d\nbody: %s", rec.Code, rec.Body.String())
	}

	entries, err := audits.Query(ctx, audit.QueryFilter{EntityID: &rel.ID})
	if err != nil {
		t.Fatalf("query audit trail: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].Action != audit.ActionRelationDeleted {
		t.Errorf("audit action = %q, want %q", entries[0].Action, audit.ActionRelationDeleted)
	}
	if entries[0].EntityType != audit.EntityRelations {
		t.Errorf("audit entity type = %q, want %q", entries[0].EntityType, audit.EntityRelations)
	}
}

func TestEnd(t *testing.T) {
	h, f := newTestHandler(t)
	ctx := context.Background()
	doctor := f.CreateDoctor(ctx)
	patient := f.CreatePatient(ctx)
	rel := f.CreateRelation(ctx, doctor.ID, patient.ID)

	// Patients cannot end a relation.
	req := httptest.NewRequest(http.MethodPost, "/api/relations/"+rel.ID.Hex()+"/end", nil)
	req = testutil.WithChiURLParam(req, "id", rel.ID.Hex())
	req = sysauth.WithUser(req, &patient)
	rec, _ := serve(t, h.ServeEnd, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("patient end status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// The doctor party can.
	req = httptest.NewRequest(http.MethodPost, "/api/relations/"+rel.ID.Hex()+"/end", nil)
	req = testutil.WithChiURLParam(req, "id", rel.ID.Hex())
	req = sysauth.WithUser(req, &doctor)
	rec, env := serve(t, h.ServeEnd, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("doctor end status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	if active, _ := env.Data["active"].(bool); active {
		t.Error("relation still active after end")
	}

	// Ending again is a no-op.
	req = httptest.NewRequest(http.MethodPost, "/api/relations/"+rel.ID.Hex()+"/end", nil)
	req = testutil.WithChiURLParam(req, "id", rel.ID.Hex())
	req = sysauth.WithUser(req, &doctor)
	if rec, _ := serve(t, h.ServeEnd, req); rec.Code != http.StatusOK {
		t.Errorf("repeat end status = %d, want %d", rec.Code, http.StatusOK)
	}
}
