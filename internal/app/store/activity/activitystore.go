package activitystore

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
	return &Store{c: db.Collection("activity_logs")}
}

// Create inserts a day's activity log. AdherenceScore is derived here
// so every write path agrees on the rule.
func (s *Store) Create(ctx context.Context, log models.ActivityLog) (models.ActivityLog, error) {
	log.ID = primitive.NewObjectID()
	log.AdherenceScore = derive.AdherenceScore(log.Steps, log.TargetSteps)
	if log.Date.IsZero() {
		log.Date = time.Now()
	}
	now := time.Now()
	log.CreatedAt = now
	log.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, log); err != nil {
		return models.ActivityLog{}, err
	}
	return log, nil
}

// GetByID loads an activity log by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ActivityLog, error) {
	var log models.ActivityLog
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&log); err != nil {
		return nil, err
	}
	return &log, nil
}

// ListByUser returns a patient's activity logs in the date range,
// newest first, with the total count for pagination.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, from, to *time.Time, skip, limit int64) ([]models.ActivityLog, int64, error) {
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

	var logs []models.ActivityLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Update applies a field-filtered patch and re-derives the adherence
// score from the resulting steps/target.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, patch bson.M) (*models.ActivityLog, error) {
	if len(patch) == 0 {
		return s.GetByID(ctx, id)
	}
	set := bson.M{"updated_at": time.Now()}
	for k, v := range patch {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var log models.ActivityLog
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&log); err != nil {
		return nil, err
	}

	// Steps or target may have changed; keep the derived score honest.
	score := derive.AdherenceScore(log.Steps, log.TargetSteps)
	if score != log.AdherenceScore {
		log.AdherenceScore = score
		if _, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
			bson.M{"$set": bson.M{"adherence_score": score}}); err != nil {
			return nil, err
		}
	}
	return &log, nil
}

// Delete removes an activity log.
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

// Summary aggregates a patient's activity over a window. Used by the
// progress report.
type Summary struct {
	Days          int     `bson:"days" json:"days"`
	TotalSteps    int     `bson:"total_steps" json:"total_steps"`
	AvgSteps      float64 `bson:"avg_steps" json:"avg_steps"`
	AvgAdherence  float64 `bson:"avg_adherence" json:"avg_adherence"`
	ActiveMinutes int     `bson:"active_minutes" json:"active_minutes"`
}

// Summarize computes aggregate stats for the window.
func (s *Store) Summarize(ctx context.Context, userID primitive.ObjectID, from, to time.Time) (Summary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id": userID,
			"date":    bson.M{"$gte": from, "$lte": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"days":           bson.M{"$sum": 1},
			"total_steps":    bson.M{"$sum": "$steps"},
			"avg_steps":      bson.M{"$avg": "$steps"},
			"avg_adherence":  bson.M{"$avg": "$adherence_score"},
			"active_minutes": bson.M{"$sum": "$active_minutes"},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return Summary{}, err
	}
	defer cur.Close(ctx)

	var out []Summary
	if err := cur.All(ctx, &out); err != nil {
		return Summary{}, err
	}
	if len(out) == 0 {
		return Summary{}, nil
	}
	return out[0], nil
}
