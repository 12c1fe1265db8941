// internal/domain/models/dietlog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Meal types accepted in a diet log.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// Food is one item eaten in a meal.
type Food struct {
	Name     string  `bson:"name" json:"name"`
	Calories float64 `bson:"calories" json:"calories"`
	ProteinG float64 `bson:"protein_g,omitempty" json:"protein_g,omitempty"`
	CarbsG   float64 `bson:"carbs_g,omitempty" json:"carbs_g,omitempty"`
	FatG     float64 `bson:"fat_g,omitempty" json:"fat_g,omitempty"`
}

// Meal groups foods under a meal type.
type Meal struct {
	Type  string `bson:"type" json:"type"` // breakfast | lunch | dinner | snack
	Foods []Food `bson:"foods" json:"foods"`
}

// DietTotals is the per-day nutrition summary, derived from Meals by
// derive.DietTotals before persistence.
type DietTotals struct {
	Calories float64 `bson:"calories" json:"calories"`
	ProteinG float64 `bson:"protein_g" json:"protein_g"`
	CarbsG   float64 `bson:"carbs_g" json:"carbs_g"`
	FatG     float64 `bson:"fat_g" json:"fat_g"`
}

// DietLog is one day of meals for a patient.
type DietLog struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Date   time.Time          `bson:"date" json:"date"`

	Meals  []Meal     `bson:"meals" json:"meals"`
	Totals DietTotals `bson:"totals" json:"totals"`
	Source string     `bson:"source,omitempty" json:"source,omitempty"` // api_integration | manual

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidMealType reports whether t names a recognized meal.
func IsValidMealType(t string) bool {
	return t == MealBreakfast || t == MealLunch || t == MealDinner || t == MealSnack
}
