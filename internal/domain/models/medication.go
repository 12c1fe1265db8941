// internal/domain/models/medication.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Medication reminder frequencies.
const (
	FreqDaily       = "daily"
	FreqTwiceDaily  = "twice_daily"
	FreqThriceDaily = "thrice_daily"
	FreqWeekly      = "weekly"
	FreqAsNeeded    = "as_needed"
)

// Dose log statuses.
const (
	DoseTaken   = "taken"
	DoseSkipped = "skipped"
	DoseMissed  = "missed"
)

// DoseLog records one scheduled dose outcome.
type DoseLog struct {
	TakenAt time.Time `bson:"taken_at" json:"taken_at"`
	Status  string    `bson:"status" json:"status"` // taken | skipped | missed
	Notes   string    `bson:"notes,omitempty" json:"notes,omitempty"`
}

// MedicationReminder is a recurring medication schedule for a patient,
// optionally prescribed by a doctor with an active care relationship.
type MedicationReminder struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	Name      string    `bson:"name" json:"name"`
	Dosage    string    `bson:"dosage" json:"dosage"`
	Frequency string    `bson:"frequency" json:"frequency"`
	Times     []string  `bson:"times,omitempty" json:"times,omitempty"` // "HH:MM" local times
	StartDate time.Time `bson:"start_date" json:"start_date"`
	EndDate   *time.Time `bson:"end_date,omitempty" json:"end_date,omitempty"`

	PrescribedBy *primitive.ObjectID `bson:"prescribed_by,omitempty" json:"prescribed_by,omitempty"`
	Lifecycle    `bson:",inline"`

	Doses []DoseLog `bson:"doses,omitempty" json:"doses,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidFrequency reports whether f is a recognized reminder frequency.
func IsValidFrequency(f string) bool {
	switch f {
	case FreqDaily, FreqTwiceDaily, FreqThriceDaily, FreqWeekly, FreqAsNeeded:
		return true
	}
	return false
}

// IsValidDoseStatus reports whether s is a recognized dose outcome.
func IsValidDoseStatus(s string) bool {
	return s == DoseTaken || s == DoseSkipped || s == DoseMissed
}
