package relationstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

var (
	// ErrActiveRelationExists is returned when establishing a relation
	// for a (doctor, patient) pair that already has an active one.
	ErrActiveRelationExists = errors.New("an active relation already exists for this doctor and patient")
	// ErrNotDoctor is returned when the doctor ID does not belong to a doctor account.
	ErrNotDoctor = errors.New("doctor_id does not reference a doctor")
	// ErrNotPatient is returned when the patient ID does not belong to a patient account.
	ErrNotPatient = errors.New("patient_id does not reference a patient")
	errBadType    = errors.New(`relation type must be "primary_care"|"specialist"|"consultant"`)
)

// UserChecker verifies that a referenced user exists with the expected
// role. Satisfied by userstore.Store.
type UserChecker interface {
	GetByRole(ctx context.Context, id primitive.ObjectID, role string) (*models.User, error)
}

type Store struct {
	c     *mongo.Collection
	users UserChecker
}

func New(db *mongo.Database, users UserChecker) *Store {
	return &Store{c: db.Collection("doctor_patient_relations"), users: users}
}

// GetByID loads a relation by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.DoctorPatientRelation, error) {
	var rel models.DoctorPatientRelation
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// ActiveRelation returns the active relation between doctor and patient,
// or (nil, nil) when none exists. Implements patientaccess.RelationSource.
func (s *Store) ActiveRelation(ctx context.Context, doctorID, patientID primitive.ObjectID) (*models.DoctorPatientRelation, error) {
	var rel models.DoctorPatientRelation
	err := s.c.FindOne(ctx, bson.M{
		"doctor_id":  doctorID,
		"patient_id": patientID,
		"active":     true,
	}).Decode(&rel)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// Establish creates an active relation between a doctor and a patient.
// A nil perms gets the default all-true grant; callers may narrow it at
// establishment. The partial unique index on (doctor_id, patient_id,
// active=true) is the arbiter under concurrency; a duplicate insert
// surfaces as ErrActiveRelationExists.
func (s *Store) Establish(ctx context.Context, rel models.DoctorPatientRelation, perms *models.RelationPermissions) (models.DoctorPatientRelation, error) {
	if rel.Type == "" {
		rel.Type = models.RelationPrimaryCare
	}
	if !models.IsValidRelationType(rel.Type) {
		return models.DoctorPatientRelation{}, errBadType
	}

	if _, err := s.users.GetByRole(ctx, rel.DoctorID, models.RoleDoctor); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.DoctorPatientRelation{}, ErrNotDoctor
		}
		return models.DoctorPatientRelation{}, err
	}
	if _, err := s.users.GetByRole(ctx, rel.PatientID, models.RolePatient); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.DoctorPatientRelation{}, ErrNotPatient
		}
		return models.DoctorPatientRelation{}, err
	}

	now := time.Now()
	rel.ID = primitive.NewObjectID()
	rel.Lifecycle = models.NewLifecycle()
	if perms != nil {
		rel.Permissions = *perms
	} else {
		rel.Permissions = models.DefaultRelationPermissions()
	}
	if rel.StartDate.IsZero() {
		rel.StartDate = now
	}
	rel.CreatedAt = now
	rel.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, rel); err != nil {
		if wafflemongo.IsDup(err) {
			return models.DoctorPatientRelation{}, ErrActiveRelationExists
		}
		return models.DoctorPatientRelation{}, err
	}
	return rel, nil
}

// End soft-deletes a relation. Ending an already-ended relation is a
// no-op, so retries are safe.
func (s *Store) End(ctx context.Context, id primitive.ObjectID) (*models.DoctorPatientRelation, error) {
	now := time.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var rel models.DoctorPatientRelation
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{
			"active":     false,
			"ended_at":   now,
			"updated_at": now,
		}},
		opts,
	).Decode(&rel)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either missing or already ended; return current state.
		return s.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// Update applies a field-filtered patch (type/permissions/notes; the
// parties are immutable) and returns the updated relation.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, patch bson.M) (*models.DoctorPatientRelation, error) {
	if t, ok := patch["type"].(string); ok && !models.IsValidRelationType(t) {
		return nil, errBadType
	}
	if len(patch) == 0 {
		return s.GetByID(ctx, id)
	}

	set := bson.M{"updated_at": time.Now()}
	for k, v := range patch {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rel models.DoctorPatientRelation
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// PermanentlyDelete removes a relation document outright. Admin-only;
// normal flows use End.
func (s *Store) PermanentlyDelete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// QueryFilter narrows Query results.
type QueryFilter struct {
	DoctorID   *primitive.ObjectID
	PatientID  *primitive.ObjectID
	ActiveOnly bool
}

// Query returns relations matching the filter, newest first, with the
// total count for pagination.
func (s *Store) Query(ctx context.Context, filter QueryFilter, skip, limit int64) ([]models.DoctorPatientRelation, int64, error) {
	q := bson.M{}
	if filter.DoctorID != nil {
		q["doctor_id"] = *filter.DoctorID
	}
	if filter.PatientID != nil {
		q["patient_id"] = *filter.PatientID
	}
	if filter.ActiveOnly {
		q["active"] = true
	}

	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var rels []models.DoctorPatientRelation
	if err := cur.All(ctx, &rels); err != nil {
		return nil, 0, err
	}
	return rels, total, nil
}
