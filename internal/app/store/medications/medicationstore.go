package medicationstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

var (
	errBadFrequency  = errors.New(`frequency must be "daily"|"twice_daily"|"thrice_daily"|"weekly"|"as_needed"`)
	errBadDoseStatus = errors.New(`dose status must be "taken"|"skipped"|"missed"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("medication_reminders")}
}

// Create inserts a medication reminder.
func (s *Store) Create(ctx context.Context, m models.MedicationReminder) (models.MedicationReminder, error) {
	if !models.IsValidFrequency(m.Frequency) {
		return models.MedicationReminder{}, errBadFrequency
	}

	m.ID = primitive.NewObjectID()
	m.Lifecycle = models.NewLifecycle()
	if m.StartDate.IsZero() {
		m.StartDate = time.Now()
	}
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.MedicationReminder{}, err
	}
	return m, nil
}

// GetByID loads a reminder by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.MedicationReminder, error) {
	var m models.MedicationReminder
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByUser returns a patient's reminders, optionally only active
// ones, newest first, with the total count for pagination.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, activeOnly bool, skip, limit int64) ([]models.MedicationReminder, int64, error) {
	q := bson.M{"user_id": userID}
	if activeOnly {
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

	var ms []models.MedicationReminder
	if err := cur.All(ctx, &ms); err != nil {
		return nil, 0, err
	}
	return ms, total, nil
}

// Update applies a field-filtered patch and returns the updated reminder.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, patch bson.M) (*models.MedicationReminder, error) {
	if f, ok := patch["frequency"].(string); ok && !models.IsValidFrequency(f) {
		return nil, errBadFrequency
	}
	if len(patch) == 0 {
		return s.GetByID(ctx, id)
	}

	set := bson.M{"updated_at": time.Now()}
	for k, v := range patch {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m models.MedicationReminder
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LogDose appends a dose outcome to the reminder's history.
func (s *Store) LogDose(ctx context.Context, id primitive.ObjectID, dose models.DoseLog) (*models.MedicationReminder, error) {
	if !models.IsValidDoseStatus(dose.Status) {
		return nil, errBadDoseStatus
	}
	if dose.TakenAt.IsZero() {
		dose.TakenAt = time.Now()
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m models.MedicationReminder
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"doses": dose},
			"$set":  bson.M{"updated_at": time.Now()},
		},
		opts,
	).Decode(&m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// End deactivates a reminder (e.g. course finished). Idempotent.
func (s *Store) End(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{
			"active":     false,
			"ended_at":   now,
			"updated_at": now,
		}},
	)
	return err
}

// Delete removes a reminder outright.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
