package klgradestore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

var (
	// ErrDuplicateGrade is returned when a grade number already exists.
	ErrDuplicateGrade = errors.New("kl grade already exists")

	errBadGrade = errors.New("grade must be between 0 and 4")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("kl_grades")}
}

// defaultGrades is the stock Kellgren-Lawrence scale seeded on first run.
var defaultGrades = []models.KLGrade{
	{
		Grade:       0,
		Severity:    "Normal",
		Description: "No radiographic features of osteoarthritis.",
		Recommendations: []string{
			"Maintain a healthy weight",
			"Stay physically active with low-impact exercise",
		},
	},
	{
		Grade:       1,
		Severity:    "Doubtful",
		Description: "Doubtful joint space narrowing and possible osteophytic lipping.",
		Recommendations: []string{
			"Regular low-impact exercise such as swimming or cycling",
			"Monitor symptoms and schedule periodic check-ups",
		},
	},
	{
		Grade:       2,
		Severity:    "Mild",
		Description: "Definite osteophytes and possible joint space narrowing.",
		Recommendations: []string{
			"Structured physiotherapy and quadriceps strengthening",
			"Weight management to reduce joint load",
			"Over-the-counter analgesics as advised by a doctor",
		},
	},
	{
		Grade:       3,
		Severity:    "Moderate",
		Description: "Multiple osteophytes, definite joint space narrowing, some sclerosis and possible bony deformity.",
		Recommendations: []string{
			"Supervised physiotherapy program",
			"Consider assistive devices such as a cane or knee brace",
			"Discuss pharmacological options with a doctor",
		},
	},
	{
		Grade:       4,
		Severity:    "Severe",
		Description: "Large osteophytes, marked joint space narrowing, severe sclerosis and definite bony deformity.",
		Recommendations: []string{
			"Consult an orthopedic specialist",
			"Evaluate candidacy for joint replacement surgery",
			"Pain management under medical supervision",
		},
	},
}

// Seed inserts the stock grade descriptions, skipping grades that already
// exist so admin edits survive restarts.
func (s *Store) Seed(ctx context.Context) error {
	for _, g := range defaultGrades {
		now := time.Now()
		g.CreatedAt = now
		g.UpdatedAt = now
		_, err := s.c.InsertOne(ctx, g)
		if err != nil && !wafflemongo.IsDup(err) {
			return err
		}
	}
	return nil
}

// GetByGrade loads the reference entry for one grade number.
func (s *Store) GetByGrade(ctx context.Context, grade int) (*models.KLGrade, error) {
	if !models.IsValidKLGrade(grade) {
		return nil, errBadGrade
	}
	var g models.KLGrade
	if err := s.c.FindOne(ctx, bson.M{"grade": grade}).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns the full scale in grade order.
func (s *Store) List(ctx context.Context) ([]models.KLGrade, error) {
	opts := options.Find().SetSort(bson.D{{Key: "grade", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var gs []models.KLGrade
	if err := cur.All(ctx, &gs); err != nil {
		return nil, err
	}
	return gs, nil
}

// Update edits the admin-maintained description for one grade.
func (s *Store) Update(ctx context.Context, grade int, patch bson.M) (*models.KLGrade, error) {
	if !models.IsValidKLGrade(grade) {
		return nil, errBadGrade
	}
	if len(patch) == 0 {
		return s.GetByGrade(ctx, grade)
	}

	set := bson.M{"updated_at": time.Now()}
	for k, v := range patch {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var g models.KLGrade
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"grade": grade}, bson.M{"$set": set}, opts).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}
