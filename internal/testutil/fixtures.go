package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
	n  int
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insertUser(ctx context.Context, u models.User) models.User {
	f.t.Helper()
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func (f *Fixtures) nextEmail(role string) string {
	f.n++
	return fmt.Sprintf("%s%d@test.com", role, f.n)
}

// CreatePatient inserts an active patient and returns it.
func (f *Fixtures) CreatePatient(ctx context.Context) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	return f.insertUser(ctx, models.User{
		ID:        primitive.NewObjectID(),
		Email:     f.nextEmail("patient"),
		FirstName: "Test",
		LastName:  "Patient",
		Role:      models.RolePatient,
		Active:    true,
		MedicalInfo: &models.MedicalInfo{
			HeightCm: 170,
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// CreateDoctor inserts an active doctor and returns it.
func (f *Fixtures) CreateDoctor(ctx context.Context) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	f.n++
	return f.insertUser(ctx, models.User{
		ID:        primitive.NewObjectID(),
		Email:     f.nextEmail("doctor"),
		FirstName: "Test",
		LastName:  "Doctor",
		Role:      models.RoleDoctor,
		Active:    true,
		DoctorInfo: &models.DoctorInfo{
			LicenseNumber:  fmt.Sprintf("LIC-%d", f.n),
			Specialization: "Orthopedics",
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// CreateAdmin inserts an active admin and returns it.
func (f *Fixtures) CreateAdmin(ctx context.Context) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	return f.insertUser(ctx, models.User{
		ID:        primitive.NewObjectID(),
		Email:     f.nextEmail("admin"),
		FirstName: "Test",
		LastName:  "Admin",
		Role:      models.RoleAdmin,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// CreateRelation inserts an active doctor-patient relation with full
// permissions and returns it.
func (f *Fixtures) CreateRelation(ctx context.Context, doctorID, patientID primitive.ObjectID) models.DoctorPatientRelation {
	f.t.Helper()
	now := time.Now().UTC()
	rel := models.DoctorPatientRelation{
		ID:          primitive.NewObjectID(),
		DoctorID:    doctorID,
		PatientID:   patientID,
		Type:        models.RelationPrimaryCare,
		StartDate:   now,
		Lifecycle:   models.NewLifecycle(),
		Permissions: models.DefaultRelationPermissions(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("doctor_patient_relations").InsertOne(ctx, rel); err != nil {
		f.t.Fatalf("failed to create test relation: %v", err)
	}
	return rel
}
