// internal/domain/models/progress.go
package models

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Progress report cadences.
const (
	ReportWeekly    = "weekly"
	ReportMonthly   = "monthly"
	ReportQuarterly = "quarterly"
)

// IsValidReportType reports whether t is a recognized report cadence.
func IsValidReportType(t string) bool {
	switch t {
	case ReportWeekly, ReportMonthly, ReportQuarterly:
		return true
	}
	return false
}

// ReportPeriod is the window a progress report covers.
type ReportPeriod struct {
	StartDate time.Time `bson:"start_date" json:"start_date"`
	EndDate   time.Time `bson:"end_date" json:"end_date"`
}

// ProgressMetrics summarizes a patient's tracked data over the report
// period. Values come from the activity and weight logs.
type ProgressMetrics struct {
	AvgAdherence  float64 `bson:"avg_adherence" json:"avg_adherence"`
	AvgSteps      float64 `bson:"avg_steps" json:"avg_steps"`
	ActiveMinutes int     `bson:"active_minutes" json:"active_minutes"`
	WeightChange  float64 `bson:"weight_change" json:"weight_change"`
	BMIChange     float64 `bson:"bmi_change" json:"bmi_change"`
	WeightTrend   string  `bson:"weight_trend" json:"weight_trend"` // losing | stable | gaining
}

// ProgressInsights holds the narrative portions of a report.
type ProgressInsights struct {
	Achievements    []string `bson:"achievements,omitempty" json:"achievements,omitempty"`
	Concerns        []string `bson:"concerns,omitempty" json:"concerns,omitempty"`
	Recommendations []string `bson:"recommendations,omitempty" json:"recommendations,omitempty"`
}

// ProgressReport is a periodic summary of a patient's condition and
// lifestyle adherence, generated by a doctor or admin.
type ProgressReport struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	ReportType string           `bson:"report_type" json:"report_type"` // weekly | monthly | quarterly
	Period     ReportPeriod     `bson:"period" json:"period"`
	Metrics    ProgressMetrics  `bson:"metrics" json:"metrics"`
	Insights   ProgressInsights `bson:"insights" json:"insights"`

	GeneratedBy primitive.ObjectID `bson:"generated_by" json:"generated_by"`
	GeneratedAt time.Time          `bson:"generated_at" json:"generated_at"`
}

// KLGradePoint is one historical grade observation, recorded each time
// a prediction is stored for the patient.
type KLGradePoint struct {
	Grade        int                `bson:"grade" json:"grade"`
	Confidence   float64            `bson:"confidence" json:"confidence"`
	PredictionID primitive.ObjectID `bson:"prediction_id" json:"prediction_id"`
	PredictedAt  time.Time          `bson:"predicted_at" json:"predicted_at"`
}

// Progression trend values.
const (
	TrendInsufficientData = "insufficient_data"
	TrendImproving        = "improving"
	TrendStable           = "stable"
	TrendWorsening        = "worsening"
)

// DiseaseProgression is one per patient and accumulates the KL grade
// history behind trend and rate analytics.
type DiseaseProgression struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	History      []KLGradePoint `bson:"history" json:"history"`
	CurrentGrade int            `bson:"current_grade" json:"current_grade"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Trend compares the earliest and latest grades in the history.
func (p *DiseaseProgression) Trend() string {
	if len(p.History) < 2 {
		return TrendInsufficientData
	}
	hist := make([]KLGradePoint, len(p.History))
	copy(hist, p.History)
	sort.Slice(hist, func(i, j int) bool {
		return hist[i].PredictedAt.Before(hist[j].PredictedAt)
	})
	first, last := hist[0], hist[len(hist)-1]
	switch {
	case last.Grade > first.Grade:
		return TrendWorsening
	case last.Grade < first.Grade:
		return TrendImproving
	}
	return TrendStable
}
