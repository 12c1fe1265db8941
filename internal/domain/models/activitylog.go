// internal/domain/models/activitylog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FlexionExtension summarizes knee-band flexion measurements for a day.
type FlexionExtension struct {
	TotalFlexions int     `bson:"total_flexions,omitempty" json:"total_flexions,omitempty"`
	AverageAngle  float64 `bson:"average_angle,omitempty" json:"average_angle,omitempty"`
	MaxAngle      float64 `bson:"max_angle,omitempty" json:"max_angle,omitempty"`
	MinAngle      float64 `bson:"min_angle,omitempty" json:"min_angle,omitempty"`
}

// LoadPressure summarizes knee load sensor readings.
type LoadPressure struct {
	AverageLoad      float64 `bson:"average_load,omitempty" json:"average_load,omitempty"`
	MaxLoad          float64 `bson:"max_load,omitempty" json:"max_load,omitempty"`
	LoadDistribution string  `bson:"load_distribution,omitempty" json:"load_distribution,omitempty"` // even | uneven | left-heavy | right-heavy
}

// TemperatureData summarizes knee temperature readings.
type TemperatureData struct {
	AverageTemp          float64 `bson:"average_temp,omitempty" json:"average_temp,omitempty"`
	MaxTemp              float64 `bson:"max_temp,omitempty" json:"max_temp,omitempty"`
	InflammationDetected bool    `bson:"inflammation_detected,omitempty" json:"inflammation_detected,omitempty"`
}

// PulseData summarizes heart-rate readings.
type PulseData struct {
	AverageHeartRate int `bson:"average_heart_rate,omitempty" json:"average_heart_rate,omitempty"`
	MaxHeartRate     int `bson:"max_heart_rate,omitempty" json:"max_heart_rate,omitempty"`
	RestingHeartRate int `bson:"resting_heart_rate,omitempty" json:"resting_heart_rate,omitempty"`
}

// KneeBandData groups all sensor readings from the wearable knee band.
type KneeBandData struct {
	FlexionExtension FlexionExtension `bson:"flexion_extension,omitempty" json:"flexion_extension,omitempty"`
	LoadPressure     LoadPressure     `bson:"load_pressure,omitempty" json:"load_pressure,omitempty"`
	Temperature      TemperatureData  `bson:"temperature,omitempty" json:"temperature,omitempty"`
	Pulse            PulseData        `bson:"pulse,omitempty" json:"pulse,omitempty"`
}

// ActivityLog is one day of movement data for a patient.
// AdherenceScore is derived from steps vs. target by derive.AdherenceScore,
// never recomputed inside the storage layer.
type ActivityLog struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Date   time.Time          `bson:"date" json:"date"`

	Steps          int     `bson:"steps" json:"steps"`
	DistanceKm     float64 `bson:"distance_km" json:"distance_km"`
	CaloriesBurned int     `bson:"calories_burned" json:"calories_burned"`
	ActiveMinutes  int     `bson:"active_minutes" json:"active_minutes"`

	KneeBand *KneeBandData `bson:"knee_band,omitempty" json:"knee_band,omitempty"`

	AdherenceScore int `bson:"adherence_score" json:"adherence_score"`
	TargetSteps    int `bson:"target_steps" json:"target_steps"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
