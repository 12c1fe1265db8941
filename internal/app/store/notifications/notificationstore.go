package notificationstore

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
	errBadType     = errors.New(`notification type must be "reminder"|"alert"|"recommendation"|"report"`)
	errBadPriority = errors.New(`priority must be "low"|"normal"|"high"|"urgent"`)
	errBadChannel  = errors.New(`channel must be "push"|"email"|"sms"|"in_app"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

// Create inserts a notification for a user. Priority defaults to normal and
// channel to in_app.
func (s *Store) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if !models.IsValidNotificationType(n.Type) {
		return models.Notification{}, errBadType
	}
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}
	if !models.IsValidPriority(n.Priority) {
		return models.Notification{}, errBadPriority
	}
	if n.Channel == "" {
		n.Channel = "in_app"
	}
	if !models.IsValidChannel(n.Channel) {
		return models.Notification{}, errBadChannel
	}

	n.ID = primitive.NewObjectID()
	n.Read = false
	n.ReadAt = nil
	n.CreatedAt = time.Now()

	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// CreateMany inserts the same notification for every user in userIDs
// and returns the number inserted. Validation runs once; the template's
// UserID is ignored.
func (s *Store) CreateMany(ctx context.Context, userIDs []primitive.ObjectID, n models.Notification) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	if !models.IsValidNotificationType(n.Type) {
		return 0, errBadType
	}
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}
	if !models.IsValidPriority(n.Priority) {
		return 0, errBadPriority
	}
	if n.Channel == "" {
		n.Channel = "in_app"
	}
	if !models.IsValidChannel(n.Channel) {
		return 0, errBadChannel
	}

	now := time.Now()
	docs := make([]any, len(userIDs))
	for i, id := range userIDs {
		doc := n
		doc.ID = primitive.NewObjectID()
		doc.UserID = id
		doc.Read = false
		doc.ReadAt = nil
		doc.CreatedAt = now
		docs[i] = doc
	}

	res, err := s.c.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return int64(len(res.InsertedIDs)), nil
}

// GetByID loads a notification by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var n models.Notification
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser returns a user's notifications, optionally only unread, newest
// first, with the total count.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, skip, limit int64) ([]models.Notification, int64, error) {
	q := bson.M{"user_id": userID}
	if unreadOnly {
		q["read"] = false
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

	var ns []models.Notification
	if err := cur.All(ctx, &ns); err != nil {
		return nil, 0, err
	}
	return ns, total, nil
}

// MarkRead flags one notification as read. Scoped to the owner.
func (s *Store) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	now := time.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var n models.Notification
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true, "read_at": now}},
		opts,
	).Decode(&n)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllRead flags every unread notification for the user. Returns the
// number updated.
func (s *Store) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	now := time.Now()
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UnreadCount returns the user's unread notification count.
func (s *Store) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
}

// Delete removes the user's own notification.
func (s *Store) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
