package predictionstore

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
	errBadKLGrade    = errors.New("kl_grade must be between 0 and 4")
	errBadOAStatus   = errors.New(`oa_status must be "OA" or "No_OA"`)
	errBadConfidence = errors.New("confidence must be between 0 and 1")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("ai_predictions")}
}

// Create stores the output of the external inference pipeline for one X-ray.
func (s *Store) Create(ctx context.Context, p models.AIPrediction) (models.AIPrediction, error) {
	if !models.IsValidKLGrade(p.KLGrade) {
		return models.AIPrediction{}, errBadKLGrade
	}
	if !models.IsValidOAStatus(p.OAStatus) {
		return models.AIPrediction{}, errBadOAStatus
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return models.AIPrediction{}, errBadConfidence
	}

	p.ID = primitive.NewObjectID()
	p.ReviewNotes = ""
	p.ReviewedBy = nil
	p.CreatedAt = time.Now()

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.AIPrediction{}, err
	}
	return p, nil
}

// GetByID loads a prediction by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.AIPrediction, error) {
	var p models.AIPrediction
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByXRay returns the prediction attached to an X-ray, or (nil, nil) when
// the image has not been analyzed yet.
func (s *Store) GetByXRay(ctx context.Context, xrayID primitive.ObjectID) (*models.AIPrediction, error) {
	var p models.AIPrediction
	err := s.c.FindOne(ctx, bson.M{"xray_image_id": xrayID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns a patient's prediction history, newest first, with the
// total count.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.AIPrediction, int64, error) {
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

	var ps []models.AIPrediction
	if err := cur.All(ctx, &ps); err != nil {
		return nil, 0, err
	}
	return ps, total, nil
}

// Latest returns the user's most recent prediction, or (nil, nil) when none
// exists.
func (s *Store) Latest(ctx context.Context, userID primitive.ObjectID) (*models.AIPrediction, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var p models.AIPrediction
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Review records a doctor's sign-off on the model output.
func (s *Store) Review(ctx context.Context, id, doctorID primitive.ObjectID, notes string) (*models.AIPrediction, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.AIPrediction
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"review_notes": notes,
			"reviewed_by":  doctorID,
		}},
		opts,
	).Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
