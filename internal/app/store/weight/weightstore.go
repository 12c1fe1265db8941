package weightstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kneetrack/kneetrack/internal/domain/derive"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("weight_logs")}
}

// Create inserts a weight measurement. heightCm comes from the user's
// medical info; zero leaves BMI unset.
func (s *Store) Create(ctx context.Context, log models.WeightLog, heightCm float64) (models.WeightLog, error) {
	log.ID = primitive.NewObjectID()
	log.BMI = derive.BMI(log.WeightKg, heightCm)
	if log.MeasurementDate.IsZero() {
		log.MeasurementDate = time.Now()
	}
	now := time.Now()
	log.CreatedAt = now
	log.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, log); err != nil {
		return models.WeightLog{}, err
	}
	return log, nil
}

// GetByID loads a weight log by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.WeightLog, error) {
	var log models.WeightLog
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&log); err != nil {
		return nil, err
	}
	return &log, nil
}

// ListByUser returns a patient's weight logs in the date range, newest
// first, with the total count for pagination.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, from, to *time.Time, skip, limit int64) ([]models.WeightLog, int64, error) {
	q := bson.M{"user_id": userID}
	if from != nil || to != nil {
		dateQ := bson.M{}
		if from != nil {
			dateQ["$gte"] = *from
		}
		if to != nil {
			dateQ["$lte"] = *to
		}
		q["measurement_date"] = dateQ
	}

	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "measurement_date", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var logs []models.WeightLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Latest returns the most recent measurement, or (nil, nil) when the
// patient has none.
func (s *Store) Latest(ctx context.Context, userID primitive.ObjectID) (*models.WeightLog, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "measurement_date", Value: -1}})
	var log models.WeightLog
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&log)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// Delete removes a weight log.
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
