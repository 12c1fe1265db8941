// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message content types.
const (
	MessageText     = "text"
	MessageImage    = "image"
	MessageFile     = "file"
	MessageAIReport = "ai_report"
)

// Attachment is an optional file reference on a message.
type Attachment struct {
	Type string `bson:"type" json:"type"` // image | file | report
	URL  string `bson:"url" json:"url"`
	Name string `bson:"name" json:"name"`
}

// Message is one direct message between two users. ConversationID is derived
// deterministically from the two participant IDs so either party resolves the
// same conversation regardless of direction.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID       primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	ReceiverID     primitive.ObjectID `bson:"receiver_id" json:"receiver_id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`

	Type       string      `bson:"type" json:"type"`
	Content    string      `bson:"content" json:"content"`
	Attachment *Attachment `bson:"attachment,omitempty" json:"attachment,omitempty"`

	Read   bool       `bson:"read" json:"read"`
	ReadAt *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ConversationID derives the canonical conversation key for a user pair.
// The smaller hex id always comes first, so both directions map to one key.
func ConversationID(a, b primitive.ObjectID) string {
	ah, bh := a.Hex(), b.Hex()
	if ah < bh {
		return ah + ":" + bh
	}
	return bh + ":" + ah
}

// IsValidMessageType reports whether t is a recognized message content type.
func IsValidMessageType(t string) bool {
	return t == MessageText || t == MessageImage || t == MessageFile || t == MessageAIReport
}
