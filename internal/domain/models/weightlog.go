// internal/domain/models/weightlog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WeightLog is one weight measurement for a patient. BMI is derived from
// weight and the user's recorded height by derive.BMI when height is known.
type WeightLog struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	WeightKg        float64   `bson:"weight_kg" json:"weight_kg"`
	BMI             float64   `bson:"bmi,omitempty" json:"bmi,omitempty"`
	MeasurementDate time.Time `bson:"measurement_date" json:"measurement_date"`
	Source          string    `bson:"source,omitempty" json:"source,omitempty"` // bluetooth_scale | manual

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
