// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// RelatedEntity points a notification at the record that triggered it.
type RelatedEntity struct {
	Type string             `bson:"type" json:"type"` // medication | consultation | forum_post | ai_prediction | progress_report
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

// Notification is a per-user message delivered through a channel.
type Notification struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	Type     string `bson:"type" json:"type"` // reminder | alert | recommendation | report
	Title    string `bson:"title" json:"title"`
	Message  string `bson:"message" json:"message"`
	Priority string `bson:"priority" json:"priority"`
	Channel  string `bson:"channel" json:"channel"` // push | email | sms | in_app

	Read   bool       `bson:"read" json:"read"`
	ReadAt *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`

	Related      *RelatedEntity `bson:"related,omitempty" json:"related,omitempty"`
	ScheduledFor *time.Time     `bson:"scheduled_for,omitempty" json:"scheduled_for,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IsValidNotificationType reports whether t is a recognized notification type.
func IsValidNotificationType(t string) bool {
	return t == "reminder" || t == "alert" || t == "recommendation" || t == "report"
}

// IsValidPriority reports whether p is a recognized priority.
func IsValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh || p == PriorityUrgent
}

// IsValidChannel reports whether c is a recognized delivery channel.
func IsValidChannel(c string) bool {
	return c == "push" || c == "email" || c == "sms" || c == "in_app"
}
