package messagestore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kneetrack/kneetrack/internal/app/system/htmlsanitize"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

var (
	errEmptyContent = errors.New("message content is required")
	errSelfMessage  = errors.New("cannot message yourself")
	errBadType      = errors.New(`message type must be "text"|"image"|"file"|"ai_report"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// Send stores a direct message. Content is sanitized and the conversation
// key is derived from the participant pair.
func (s *Store) Send(ctx context.Context, m models.Message) (models.Message, error) {
	if m.SenderID == m.ReceiverID {
		return models.Message{}, errSelfMessage
	}
	if m.Type == "" {
		m.Type = models.MessageText
	}
	if !models.IsValidMessageType(m.Type) {
		return models.Message{}, errBadType
	}
	m.Content = htmlsanitize.Sanitize(m.Content)
	if m.Content == "" && m.Attachment == nil {
		return models.Message{}, errEmptyContent
	}

	m.ID = primitive.NewObjectID()
	m.ConversationID = models.ConversationID(m.SenderID, m.ReceiverID)
	m.Read = false
	m.ReadAt = nil
	m.CreatedAt = time.Now()

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// GetByID loads a single message.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var m models.Message
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Conversation returns the message history between two users, newest first,
// with the total count for pagination.
func (s *Store) Conversation(ctx context.Context, a, b primitive.ObjectID, skip, limit int64) ([]models.Message, int64, error) {
	q := bson.M{"conversation_id": models.ConversationID(a, b)}

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

	var msgs []models.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// ConversationSummary is one row of a user's inbox.
type ConversationSummary struct {
	ConversationID string         `bson:"_id" json:"conversation_id"`
	LastMessage    models.Message `bson:"last_message" json:"last_message"`
	Unread         int64          `bson:"unread" json:"unread"`
}

// Conversations lists the user's conversations ordered by most recent
// message, with an unread count per conversation.
func (s *Store) Conversations(ctx context.Context, userID primitive.ObjectID) ([]ConversationSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"$or": bson.A{
				bson.M{"sender_id": userID},
				bson.M{"receiver_id": userID},
			},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$conversation_id",
			"last_message": bson.M{"$first": "$$ROOT"},
			"unread": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$receiver_id", userID}},
					bson.M{"$eq": bson.A{"$read", false}},
				}},
				1, 0,
			}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message.created_at", Value: -1}}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []ConversationSummary
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkConversationRead marks every unread message addressed to userID in the
// conversation with other as read. Returns the number updated.
func (s *Store) MarkConversationRead(ctx context.Context, userID, other primitive.ObjectID) (int64, error) {
	now := time.Now()
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"conversation_id": models.ConversationID(userID, other),
			"receiver_id":     userID,
			"read":            false,
		},
		bson.M{"$set": bson.M{"read": true, "read_at": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UnreadCount returns the user's total unread message count.
func (s *Store) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"receiver_id": userID, "read": false})
}

// Delete removes a message the sender wants withdrawn. Only the sender's own
// messages match.
func (s *Store) Delete(ctx context.Context, id, senderID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "sender_id": senderID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
