// internal/domain/models/relation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Relationship types a doctor can hold toward a patient.
const (
	RelationPrimaryCare = "primary_care"
	RelationSpecialist  = "specialist"
	RelationConsultant  = "consultant"
)

// RelationPermissions is the granular grant set attached to a care
// relationship. All permissions default to true on establishment.
type RelationPermissions struct {
	ViewPredictions       bool `bson:"view_predictions" json:"view_predictions"`
	ViewActivityData      bool `bson:"view_activity_data" json:"view_activity_data"`
	ModifyRecommendations bool `bson:"modify_recommendations" json:"modify_recommendations"`
	PrescribeMedications  bool `bson:"prescribe_medications" json:"prescribe_medications"`
}

// DefaultRelationPermissions grants everything.
func DefaultRelationPermissions() RelationPermissions {
	return RelationPermissions{
		ViewPredictions:       true,
		ViewActivityData:      true,
		ModifyRecommendations: true,
		PrescribeMedications:  true,
	}
}

// DoctorPatientRelation links a doctor to a patient they care for.
//
// DoctorID and PatientID are immutable once created; changing parties means
// ending this relation and establishing a new one. At most one active
// relation may exist per (doctor, patient) pair, enforced by a partial
// unique index, not in-process locking, since multiple instances may run.
type DoctorPatientRelation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DoctorID  primitive.ObjectID `bson:"doctor_id" json:"doctor_id"`
	PatientID primitive.ObjectID `bson:"patient_id" json:"patient_id"`

	Type      string    `bson:"type" json:"type"` // primary_care | specialist | consultant
	StartDate time.Time `bson:"start_date" json:"start_date"`
	Lifecycle `bson:",inline"`
	Permissions RelationPermissions `bson:"permissions" json:"permissions"`
	Notes       string              `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidRelationType reports whether t is a recognized relationship type.
func IsValidRelationType(t string) bool {
	return t == RelationPrimaryCare || t == RelationSpecialist || t == RelationConsultant
}
