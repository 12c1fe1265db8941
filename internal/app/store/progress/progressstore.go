// internal/app/store/progress/progressstore.go
package progressstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

var (
	errBadReportType = errors.New(`report_type must be "weekly"|"monthly"|"quarterly"`)
	errBadPeriod     = errors.New("period end date must be after the start date")
)

// Store persists progress reports and per-patient disease progression.
type Store struct {
	reports      *mongo.Collection
	progressions *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		reports:      db.Collection("progress_reports"),
		progressions: db.Collection("disease_progressions"),
	}
}

// CreateReport validates and inserts a progress report.
func (s *Store) CreateReport(ctx context.Context, rep models.ProgressReport) (models.ProgressReport, error) {
	if !models.IsValidReportType(rep.ReportType) {
		return models.ProgressReport{}, errBadReportType
	}
	if !rep.Period.EndDate.After(rep.Period.StartDate) {
		return models.ProgressReport{}, errBadPeriod
	}

	rep.ID = primitive.NewObjectID()
	rep.GeneratedAt = time.Now()

	if _, err := s.reports.InsertOne(ctx, rep); err != nil {
		return models.ProgressReport{}, err
	}
	return rep, nil
}

// GetReportByID loads a report by ObjectID.
func (s *Store) GetReportByID(ctx context.Context, id primitive.ObjectID) (*models.ProgressReport, error) {
	var rep models.ProgressReport
	if err := s.reports.FindOne(ctx, bson.M{"_id": id}).Decode(&rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// ReportFilter narrows QueryReports results.
type ReportFilter struct {
	UserID      *primitive.ObjectID
	GeneratedBy *primitive.ObjectID
	ReportType  string
}

// QueryReports returns reports matching the filter, newest first, with
// the total count for pagination.
func (s *Store) QueryReports(ctx context.Context, filter ReportFilter, skip, limit int64) ([]models.ProgressReport, int64, error) {
	q := bson.M{}
	if filter.UserID != nil {
		q["user_id"] = *filter.UserID
	}
	if filter.GeneratedBy != nil {
		q["generated_by"] = *filter.GeneratedBy
	}
	if filter.ReportType != "" {
		q["report_type"] = filter.ReportType
	}

	total, err := s.reports.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "generated_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.reports.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var reps []models.ProgressReport
	if err := cur.All(ctx, &reps); err != nil {
		return nil, 0, err
	}
	return reps, total, nil
}

// DeleteReport removes a report outright.
func (s *Store) DeleteReport(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.reports.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// GetProgression returns the patient's progression document, or
// (nil, nil) when none has been recorded yet.
func (s *Store) GetProgression(ctx context.Context, userID primitive.ObjectID) (*models.DiseaseProgression, error) {
	var p models.DiseaseProgression
	err := s.progressions.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RecordPrediction appends a grade observation to the patient's history
// and updates the current grade. The document is created on first use;
// the unique index on user_id keeps it one per patient.
func (s *Store) RecordPrediction(ctx context.Context, userID primitive.ObjectID, point models.KLGradePoint) error {
	if point.PredictedAt.IsZero() {
		point.PredictedAt = time.Now()
	}
	now := time.Now()

	_, err := s.progressions.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$push":        bson.M{"history": point},
			"$set":         bson.M{"current_grade": point.Grade, "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// DeleteProgression removes a patient's progression document.
func (s *Store) DeleteProgression(ctx context.Context, userID primitive.ObjectID) error {
	res, err := s.progressions.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Progression rates and risk levels derived by Analytics.
const (
	RateStable   = "stable"
	RateSlow     = "slow"
	RateModerate = "moderate"
	RateRapid    = "rapid"

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Analytics is the computed progression summary for a patient.
type Analytics struct {
	HasData          bool                  `json:"has_data"`
	CurrentGrade     int                   `json:"current_grade,omitempty"`
	Trend            string                `json:"trend,omitempty"`
	Rate             string                `json:"rate,omitempty"`
	RiskLevel        string                `json:"risk_level,omitempty"`
	TotalPredictions int                   `json:"total_predictions,omitempty"`
	FirstPredictedAt *time.Time            `json:"first_predicted_at,omitempty"`
	LastPredictedAt  *time.Time            `json:"last_predicted_at,omitempty"`
	History          []models.KLGradePoint `json:"history,omitempty"`
}

// Analytics derives trend, progression rate, and risk level from the
// patient's grade history. Rate is grade change per year: above 1 is
// rapid, above 0.5 moderate, any other increase slow.
func (s *Store) Analytics(ctx context.Context, userID primitive.ObjectID) (Analytics, error) {
	p, err := s.GetProgression(ctx, userID)
	if err != nil {
		return Analytics{}, err
	}
	if p == nil {
		return Analytics{}, nil
	}

	hist := make([]models.KLGradePoint, len(p.History))
	copy(hist, p.History)
	sort.Slice(hist, func(i, j int) bool {
		return hist[i].PredictedAt.Before(hist[j].PredictedAt)
	})

	a := Analytics{
		HasData:          true,
		CurrentGrade:     p.CurrentGrade,
		Trend:            p.Trend(),
		Rate:             RateStable,
		RiskLevel:        RiskLow,
		TotalPredictions: len(hist),
		History:          hist,
	}
	if len(hist) >= 2 {
		first, last := hist[0], hist[len(hist)-1]
		a.FirstPredictedAt = &first.PredictedAt
		a.LastPredictedAt = &last.PredictedAt

		years := last.PredictedAt.Sub(first.PredictedAt).Hours() / (24 * 365)
		gradeChange := last.Grade - first.Grade
		if gradeChange > 0 && years > 0 {
			switch perYear := float64(gradeChange) / years; {
			case perYear > 1:
				a.Rate = RateRapid
			case perYear > 0.5:
				a.Rate = RateModerate
			default:
				a.Rate = RateSlow
			}
		}
	}
	switch {
	case p.CurrentGrade >= 3:
		a.RiskLevel = RiskHigh
	case p.CurrentGrade >= 2:
		a.RiskLevel = RiskMedium
	}
	return a, nil
}
