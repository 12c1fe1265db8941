// internal/domain/models/consultation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Consultation types.
const (
	ConsultVirtual  = "virtual"
	ConsultInPerson = "in_person"
	ConsultReview   = "review"
)

// Consultation statuses.
const (
	ConsultScheduled  = "scheduled"
	ConsultInProgress = "in_progress"
	ConsultCompleted  = "completed"
	ConsultCancelled  = "cancelled"
	ConsultNoShow     = "no_show"
)

// ClinicalFindings holds the doctor's examination notes from a completed
// consultation. Severity values are none | mild | moderate | severe.
type ClinicalFindings struct {
	Effusion string `bson:"effusion,omitempty" json:"effusion,omitempty"`
	Crepitus string `bson:"crepitus,omitempty" json:"crepitus,omitempty"`
	Notes    string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// MeetingInfo carries the virtual-meeting coordinates for a consultation.
type MeetingInfo struct {
	Platform string `bson:"platform,omitempty" json:"platform,omitempty"` // zoom | teams | google_meet | in_app
	URL      string `bson:"url,omitempty" json:"url,omitempty"`
}

// Consultation is a scheduled appointment between a doctor and a patient.
// Only the assigned doctor can complete it.
type Consultation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DoctorID  primitive.ObjectID `bson:"doctor_id" json:"doctor_id"`
	PatientID primitive.ObjectID `bson:"patient_id" json:"patient_id"`

	Type          string        `bson:"type" json:"type"`
	ScheduledTime time.Time     `bson:"scheduled_time" json:"scheduled_time"`
	Duration      time.Duration `bson:"duration_ns,omitempty" json:"duration_ns,omitempty"`
	Status        string        `bson:"status" json:"status"`

	Findings *ClinicalFindings `bson:"findings,omitempty" json:"findings,omitempty"`
	Meeting  *MeetingInfo      `bson:"meeting,omitempty" json:"meeting,omitempty"`

	Notes              string `bson:"notes,omitempty" json:"notes,omitempty"`
	CancellationReason string `bson:"cancellation_reason,omitempty" json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidConsultType reports whether t is a recognized consultation type.
func IsValidConsultType(t string) bool {
	return t == ConsultVirtual || t == ConsultInPerson || t == ConsultReview
}

// IsValidConsultStatus reports whether s is a recognized consultation status.
func IsValidConsultStatus(s string) bool {
	switch s {
	case ConsultScheduled, ConsultInProgress, ConsultCompleted, ConsultCancelled, ConsultNoShow:
		return true
	}
	return false
}
