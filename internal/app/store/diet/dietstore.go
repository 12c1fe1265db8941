package dietstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kneetrack/kneetrack/internal/domain/derive"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

var errBadMealType = errors.New(`meal type must be "breakfast"|"lunch"|"dinner"|"snack"`)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("diet_logs")}
}

// Create inserts a day's diet log with derived nutrition totals.
func (s *Store) Create(ctx context.Context, log models.DietLog) (models.DietLog, error) {
	for _, m := range log.Meals {
		if !models.IsValidMealType(m.Type) {
			return models.DietLog{}, errBadMealType
		}
	}

	log.ID = primitive.NewObjectID()
	log.Totals = derive.DietTotals(log.Meals)
	if log.Date.IsZero() {
		log.Date = time.Now()
	}
	now := time.Now()
	log.CreatedAt = now
	log.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, log); err != nil {
		return models.DietLog{}, err
	}
	return log, nil
}

// GetByID loads a diet log by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.DietLog, error) {
	var log models.DietLog
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&log); err != nil {
		return nil, err
	}
	return &log, nil
}

// ListByUser returns a patient's diet logs in the date range, newest
// first, with the total count for pagination.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, from, to *time.Time, skip, limit int64) ([]models.DietLog, int64, error) {
	q := bson.M{"user_id": userID}
	if from != nil || to != nil {
		dateQ := bson.M{}
		if from != nil {
			dateQ["$gte"] = *from
		}
		if to != nil {
			dateQ["$lte"] = *to
		}
		q["date"] = dateQ
	}

	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var logs []models.DietLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Update applies a field-filtered patch. When the meals change, the
// totals are re-derived from the new meal set.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, patch bson.M) (*models.DietLog, error) {
	if len(patch) == 0 {
		return s.GetByID(ctx, id)
	}
	set := bson.M{"updated_at": time.Now()}
	for k, v := range patch {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var log models.DietLog
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&log); err != nil {
		return nil, err
	}

	if _, ok := patch["meals"]; ok {
		totals := derive.DietTotals(log.Meals)
		log.Totals = totals
		if _, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
			bson.M{"$set": bson.M{"totals": totals}}); err != nil {
			return nil, err
		}
	}
	return &log, nil
}

// Delete removes a diet log.
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
