// internal/domain/derive/derive.go
//
// Package derive computes values that are stored denormalized on log
// documents. Stores call these at write time; they are pure so the
// rules are testable without a database.
package derive

import (
	"math"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// BMI computes body mass index from weight in kilograms and height in
// centimeters, rounded to one decimal. Returns 0 when height is unknown.
func BMI(weightKg, heightCm float64) float64 {
	if heightCm <= 0 || weightKg <= 0 {
		return 0
	}
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*10) / 10
}

// DietTotals sums nutrition across all foods in all meals.
func DietTotals(meals []models.Meal) models.DietTotals {
	var t models.DietTotals
	for _, meal := range meals {
		for _, f := range meal.Foods {
			t.Calories += f.Calories
			t.ProteinG += f.ProteinG
			t.CarbsG += f.CarbsG
			t.FatG += f.FatG
		}
	}
	return t
}

// AdherenceScore rates a day's activity against its step target as a
// 0-100 percentage, capped at 100. A zero target yields 0 rather than
// a division error.
func AdherenceScore(steps, targetSteps int) int {
	if targetSteps <= 0 || steps <= 0 {
		return 0
	}
	score := steps * 100 / targetSteps
	if score > 100 {
		return 100
	}
	return score
}

// DoseAdherence computes the fraction of recorded doses that were
// taken, as a 0-100 percentage.
func DoseAdherence(doses []models.DoseLog) int {
	if len(doses) == 0 {
		return 0
	}
	var taken int
	for _, d := range doses {
		if d.Status == models.DoseTaken {
			taken++
		}
	}
	return taken * 100 / len(doses)
}
