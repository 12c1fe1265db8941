package xraystore

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
	errBadView   = errors.New(`view must be "AP"|"PA"|"Lateral"|"Oblique"`)
	errBadStatus = errors.New(`status must be "pending"|"processing"|"completed"|"failed"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("xray_images")}
}

// Create records metadata for an uploaded radiograph. The binary itself has
// already been written to file storage by the caller.
func (s *Store) Create(ctx context.Context, x models.XRayImage) (models.XRayImage, error) {
	if x.View != "" && !models.IsValidXRayView(x.View) {
		return models.XRayImage{}, errBadView
	}

	x.ID = primitive.NewObjectID()
	x.Status = models.XRayPending
	if x.UploadedAt.IsZero() {
		x.UploadedAt = time.Now()
	}

	if _, err := s.c.InsertOne(ctx, x); err != nil {
		return models.XRayImage{}, err
	}
	return x, nil
}

// GetByID loads an X-ray record by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.XRayImage, error) {
	var x models.XRayImage
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&x); err != nil {
		return nil, err
	}
	return &x, nil
}

// ListByUser returns a patient's X-rays, newest upload first, with the
// total count.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.XRayImage, int64, error) {
	q := bson.M{"user_id": userID}

	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "uploaded_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var xs []models.XRayImage
	if err := cur.All(ctx, &xs); err != nil {
		return nil, 0, err
	}
	return xs, total, nil
}

// SetStatus moves an X-ray through the processing pipeline.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.XRayImage, error) {
	switch status {
	case models.XRayPending, models.XRayProcessing, models.XRayCompleted, models.XRayFailed:
	default:
		return nil, errBadStatus
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var x models.XRayImage
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}},
		opts,
	).Decode(&x)
	if err != nil {
		return nil, err
	}
	return &x, nil
}

// Delete removes an X-ray record. The caller is responsible for removing the
// stored file.
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
