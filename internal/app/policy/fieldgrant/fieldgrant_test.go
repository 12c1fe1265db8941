package fieldgrant

import (
	"testing"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

func TestFilter_DropsUngrantedFields(t *testing.T) {
	patch := map[string]any{
		"first_name": "Ada",
		"role":       "admin", // privilege escalation attempt
		"password":   "sneaky",
	}

	out := Filter(models.RolePatient, EntityUsers, patch)

	if out["first_name"] != "Ada" {
		t.Errorf("first_name dropped: %v", out)
	}
	if _, ok := out["role"]; ok {
		t.Error("patient was allowed to change role")
	}
	if _, ok := out["password"]; ok {
		t.Error("password passed through the grant filter")
	}
}

func TestFilter_AdminExtension(t *testing.T) {
	patch := map[string]any{
		"role":   models.RoleDoctor,
		"active": false,
		"email":  "new@example.com",
	}

	out := Filter(models.RoleAdmin, EntityUsers, patch)
	for _, k := range []string{"role", "active", "email"} {
		if _, ok := out[k]; !ok {
			t.Errorf("admin should be allowed to write %q", k)
		}
	}
}

func TestFilter_DoctorConsultationExtension(t *testing.T) {
	patch := map[string]any{
		"status":   "completed",
		"findings": map[string]any{"effusion": "mild"},
	}

	asPatient := Filter(models.RolePatient, EntityConsultations, patch)
	if _, ok := asPatient["findings"]; ok {
		t.Error("patient was allowed to write clinical findings")
	}
	if _, ok := asPatient["status"]; !ok {
		t.Error("patient should be allowed to write status")
	}

	asDoctor := Filter(models.RoleDoctor, EntityConsultations, patch)
	if _, ok := asDoctor["findings"]; !ok {
		t.Error("doctor should be allowed to write clinical findings")
	}
}

func TestFilter_RelationPartiesImmutable(t *testing.T) {
	patch := map[string]any{
		"doctor_id":   "000000000000000000000001",
		"patient_id":  "000000000000000000000002",
		"permissions": map[string]any{"view_predictions": false},
		"notes":       "transferred care",
	}

	out := Filter(models.RoleAdmin, EntityRelations, patch)
	if _, ok := out["doctor_id"]; ok {
		t.Error("doctor_id must be immutable")
	}
	if _, ok := out["patient_id"]; ok {
		t.Error("patient_id must be immutable")
	}
	if _, ok := out["permissions"]; !ok {
		t.Error("permissions should be updatable")
	}
}

func TestFilter_UnknownEntity(t *testing.T) {
	out := Filter(models.RoleAdmin, "bogus", map[string]any{"x": 1})
	if len(out) != 0 {
		t.Errorf("unknown entity should filter everything, got %v", out)
	}
}

func TestAllows(t *testing.T) {
	if !Allows(models.RolePatient, EntityForumPosts, "title") {
		t.Error("title should be writable on forum posts")
	}
	if Allows(models.RolePatient, EntityUsers, "role") {
		t.Error("patient must not write users.role")
	}
	if !Allows(models.RoleAdmin, EntityUsers, "role") {
		t.Error("admin should write users.role")
	}
	if Allows(models.RoleAdmin, "bogus", "anything") {
		t.Error("unknown entity should never allow")
	}
}
