// internal/domain/models/klgrade.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// KLGrade is admin-maintained reference data describing one step of the
// Kellgren-Lawrence severity scale. Grade is unique (0-4).
type KLGrade struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Grade       int                `bson:"grade" json:"grade"`
	Description string             `bson:"description" json:"description"`
	Severity    string             `bson:"severity" json:"severity"` // Normal | Mild | Moderate | Severe | Very Severe

	Recommendations []string `bson:"recommendations,omitempty" json:"recommendations,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
