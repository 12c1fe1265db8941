package recommendationstore

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

var errBadGrade = errors.New("kl_grade must be between 0 and 4")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("recommendations")}
}

// Create inserts a care plan for a patient.
func (s *Store) Create(ctx context.Context, rec models.Recommendation) (models.Recommendation, error) {
	if !models.IsValidKLGrade(rec.KLGrade) {
		return models.Recommendation{}, errBadGrade
	}

	rec.ID = primitive.NewObjectID()
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return models.Recommendation{}, err
	}
	return rec, nil
}

// GetByID loads a care plan by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Recommendation, error) {
	var rec models.Recommendation
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByUser returns a patient's care plans, newest first, with the total.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Recommendation, int64, error) {
	q := bson.M{"user_id": userID}

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

	var recs []models.Recommendation
	if err := cur.All(ctx, &recs); err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// Latest returns a patient's most recent care plan, or (nil, nil) when
// none exists.
func (s *Store) Latest(ctx context.Context, userID primitive.ObjectID) (*models.Recommendation, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var rec models.Recommendation
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update applies a field-filtered patch to a care plan.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, patch bson.M) (*models.Recommendation, error) {
	if g, ok := patch["kl_grade"].(int); ok && !models.IsValidKLGrade(g) {
		return nil, errBadGrade
	}
	if len(patch) == 0 {
		return s.GetByID(ctx, id)
	}

	set := bson.M{"updated_at": time.Now()}
	for k, v := range patch {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rec models.Recommendation
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes a care plan.
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
