package patientaccess

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// fakeRelations returns a canned relation for one (doctor, patient) pair.
type fakeRelations struct {
	doctorID  primitive.ObjectID
	patientID primitive.ObjectID
	rel       *models.DoctorPatientRelation
	err       error
}

func (f *fakeRelations) ActiveRelation(_ context.Context, doctorID, patientID primitive.ObjectID) (*models.DoctorPatientRelation, error) {
	if f.err != nil {
		return nil, f.err
	}
	if doctorID == f.doctorID && patientID == f.patientID {
		return f.rel, nil
	}
	return nil, nil
}

func newUser(role string) *models.User {
	return &models.User{ID: primitive.NewObjectID(), Role: role}
}

func TestCheck_AdminAlwaysAllowed(t *testing.T) {
	admin := newUser(models.RoleAdmin)
	patient := primitive.NewObjectID()

	d, err := Check(context.Background(), &fakeRelations{}, admin, patient, PermViewPredictions)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed || d.Ground != GroundAdmin {
		t.Errorf("decision = %+v, want allow on admin ground", d)
	}
}

func TestCheck_PatientSelf(t *testing.T) {
	patient := newUser(models.RolePatient)

	d, err := Check(context.Background(), &fakeRelations{}, patient, patient.ID, PermViewActivity)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed || d.Ground != GroundSelf {
		t.Errorf("decision = %+v, want allow on self ground", d)
	}
}

func TestCheck_PatientOtherDenied(t *testing.T) {
	patient := newUser(models.RolePatient)
	other := primitive.NewObjectID()

	d, err := Check(context.Background(), &fakeRelations{}, patient, other, PermViewActivity)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Errorf("patient allowed into another patient's data: %+v", d)
	}
}

func TestCheck_DoctorWithActiveRelation(t *testing.T) {
	doctor := newUser(models.RoleDoctor)
	patientID := primitive.NewObjectID()

	rels := &fakeRelations{
		doctorID:  doctor.ID,
		patientID: patientID,
		rel: &models.DoctorPatientRelation{
			DoctorID:    doctor.ID,
			PatientID:   patientID,
			Lifecycle:   models.NewLifecycle(),
			Permissions: models.DefaultRelationPermissions(),
		},
	}

	d, err := Check(context.Background(), rels, doctor, patientID, PermViewPredictions)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed || d.Ground != GroundRelation {
		t.Errorf("decision = %+v, want allow on relation ground", d)
	}
}

func TestCheck_DoctorWithoutRelation(t *testing.T) {
	doctor := newUser(models.RoleDoctor)
	patientID := primitive.NewObjectID()

	d, err := Check(context.Background(), &fakeRelations{}, doctor, patientID, PermViewPredictions)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Errorf("doctor without relation allowed: %+v", d)
	}
}

func TestCheck_DoctorPermissionFlagRespected(t *testing.T) {
	doctor := newUser(models.RoleDoctor)
	patientID := primitive.NewObjectID()

	perms := models.DefaultRelationPermissions()
	perms.PrescribeMedications = false

	rels := &fakeRelations{
		doctorID:  doctor.ID,
		patientID: patientID,
		rel: &models.DoctorPatientRelation{
			DoctorID:    doctor.ID,
			PatientID:   patientID,
			Lifecycle:   models.NewLifecycle(),
			Permissions: perms,
		},
	}

	// Prescribing is revoked.
	d, err := Check(context.Background(), rels, doctor, patientID, PermPrescribe)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Errorf("revoked permission still allowed: %+v", d)
	}

	// Viewing is still granted.
	d, err = Check(context.Background(), rels, doctor, patientID, PermViewPredictions)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed {
		t.Errorf("granted permission denied: %+v", d)
	}
}

func TestCheck_DoctorEndedRelationDenied(t *testing.T) {
	doctor := newUser(models.RoleDoctor)
	patientID := primitive.NewObjectID()

	life := models.NewLifecycle()
	life.Active = false

	rels := &fakeRelations{
		doctorID:  doctor.ID,
		patientID: patientID,
		rel: &models.DoctorPatientRelation{
			DoctorID:    doctor.ID,
			PatientID:   patientID,
			Lifecycle:   life,
			Permissions: models.DefaultRelationPermissions(),
		},
	}

	d, err := Check(context.Background(), rels, doctor, patientID, PermViewPredictions)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Errorf("ended relation still grants access: %+v", d)
	}
}

func TestCheck_DoctorSelf(t *testing.T) {
	doctor := newUser(models.RoleDoctor)

	d, err := Check(context.Background(), &fakeRelations{}, doctor, doctor.ID, PermViewActivity)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed || d.Ground != GroundSelf {
		t.Errorf("decision = %+v, want allow on self ground", d)
	}
}

func TestCheck_NilActorDenied(t *testing.T) {
	d, err := Check(context.Background(), &fakeRelations{}, nil, primitive.NewObjectID(), PermViewPredictions)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Error("nil actor allowed")
	}
}

func TestCheck_LookupErrorFailsClosed(t *testing.T) {
	doctor := newUser(models.RoleDoctor)
	rels := &fakeRelations{err: errors.New("connection reset")}

	d, err := Check(context.Background(), rels, doctor, primitive.NewObjectID(), PermViewPredictions)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if d.Allowed {
		t.Error("lookup failure must deny")
	}
}
