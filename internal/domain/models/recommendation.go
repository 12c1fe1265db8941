// internal/domain/models/recommendation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExercisePlanItem is one exercise recommendation line.
type ExercisePlanItem struct {
	Type        string `bson:"type" json:"type"` // daily_steps | low_impact_exercise | strength_training | flexibility
	Target      string `bson:"target" json:"target"`
	Description string `bson:"description" json:"description"`
	Priority    string `bson:"priority,omitempty" json:"priority,omitempty"` // low | medium | high
}

// DietPlanItem is one diet recommendation line.
type DietPlanItem struct {
	Type        string `bson:"type" json:"type"` // anti_inflammatory | weight_management | supplement | hydration
	Description string `bson:"description" json:"description"`
	Priority    string `bson:"priority,omitempty" json:"priority,omitempty"`
}

// MedicationPlanItem is one medication recommendation line.
type MedicationPlanItem struct {
	Type      string `bson:"type" json:"type"` // supplement | pain_relief | anti_inflammatory
	Name      string `bson:"name" json:"name"`
	Dosage    string `bson:"dosage" json:"dosage"`
	Frequency string `bson:"frequency" json:"frequency"`
}

// LifestylePlanItem is one lifestyle recommendation line.
type LifestylePlanItem struct {
	Type        string `bson:"type" json:"type"` // posture_check | exercise_reminder | medication_reminder | hydration
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

// Recommendation is a doctor- or admin-authored care plan for a patient,
// keyed to the patient's KL grade.
type Recommendation struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`
	KLGrade int                `bson:"kl_grade" json:"kl_grade"`

	Exercise   []ExercisePlanItem   `bson:"exercise,omitempty" json:"exercise,omitempty"`
	Diet       []DietPlanItem       `bson:"diet,omitempty" json:"diet,omitempty"`
	Medication []MedicationPlanItem `bson:"medication,omitempty" json:"medication,omitempty"`
	Lifestyle  []LifestylePlanItem  `bson:"lifestyle,omitempty" json:"lifestyle,omitempty"`

	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
