// internal/domain/models/prediction.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OA statuses produced by the external inference pipeline.
const (
	OAPresent = "OA"
	OAAbsent  = "No_OA"
)

// RadiographicFindings is the per-feature breakdown attached to a prediction.
// Severity values are none | mild | moderate | severe; osteophytes is
// absent | present | multiple.
type RadiographicFindings struct {
	Osteophytes          string `bson:"osteophytes" json:"osteophytes"`
	JointSpaceNarrowing  string `bson:"joint_space_narrowing" json:"joint_space_narrowing"`
	Sclerosis            string `bson:"sclerosis" json:"sclerosis"`
	Severity             string `bson:"severity" json:"severity"`
}

// ModelMetadata records which external model produced a prediction.
type ModelMetadata struct {
	Name    string `bson:"name" json:"name"`
	Version string `bson:"version" json:"version"`
}

// AIPrediction stores the output of the external CNN inference for one X-ray.
// This repository only stores the shape; no inference happens here.
type AIPrediction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	XRayImageID primitive.ObjectID `bson:"xray_image_id" json:"xray_image_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`

	OAStatus   string  `bson:"oa_status" json:"oa_status"` // OA | No_OA
	KLGrade    int     `bson:"kl_grade" json:"kl_grade"`   // 0-4
	Confidence float64 `bson:"confidence" json:"confidence"`
	RiskScore  float64 `bson:"risk_score" json:"risk_score"`

	Findings RadiographicFindings `bson:"findings" json:"findings"`
	Model    ModelMetadata        `bson:"model" json:"model"`

	// A doctor's sign-off on the model output.
	ReviewNotes string              `bson:"review_notes,omitempty" json:"review_notes,omitempty"`
	ReviewedBy  *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IsValidKLGrade reports whether g is within the Kellgren-Lawrence scale.
func IsValidKLGrade(g int) bool {
	return g >= 0 && g <= 4
}

// IsValidOAStatus reports whether s is a recognized OA status.
func IsValidOAStatus(s string) bool {
	return s == OAPresent || s == OAAbsent
}
