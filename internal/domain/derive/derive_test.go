package derive

import (
	"testing"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

func TestBMI(t *testing.T) {
	tests := []struct {
		weightKg float64
		heightCm float64
		want     float64
	}{
		{70, 175, 22.9},
		{90, 180, 27.8},
		{50, 160, 19.5},
		{70, 0, 0},  // unknown height
		{0, 175, 0}, // unknown weight
		{70, -10, 0},
	}
	for _, tt := range tests {
		if got := BMI(tt.weightKg, tt.heightCm); got != tt.want {
			t.Errorf("BMI(%v, %v) = %v, want %v", tt.weightKg, tt.heightCm, got, tt.want)
		}
	}
}

func TestDietTotals(t *testing.T) {
	meals := []models.Meal{
		{
			Type: models.MealBreakfast,
			Foods: []models.Food{
				{Name: "oatmeal", Calories: 150, ProteinG: 5, CarbsG: 27, FatG: 3},
				{Name: "banana", Calories: 105, ProteinG: 1, CarbsG: 27, FatG: 0},
			},
		},
		{
			Type: models.MealLunch,
			Foods: []models.Food{
				{Name: "chicken salad", Calories: 350, ProteinG: 30, CarbsG: 10, FatG: 20},
			},
		},
	}

	got := DietTotals(meals)
	want := models.DietTotals{Calories: 605, ProteinG: 36, CarbsG: 64, FatG: 23}
	if got != want {
		t.Errorf("DietTotals = %+v, want %+v", got, want)
	}
}

func TestDietTotals_Empty(t *testing.T) {
	if got := DietTotals(nil); got != (models.DietTotals{}) {
		t.Errorf("DietTotals(nil) = %+v, want zero", got)
	}
}

func TestAdherenceScore(t *testing.T) {
	tests := []struct {
		steps, target, want int
	}{
		{5000, 10000, 50},
		{10000, 10000, 100},
		{15000, 10000, 100}, // capped
		{0, 10000, 0},
		{5000, 0, 0}, // no target
		{-100, 10000, 0},
	}
	for _, tt := range tests {
		if got := AdherenceScore(tt.steps, tt.target); got != tt.want {
			t.Errorf("AdherenceScore(%d, %d) = %d, want %d", tt.steps, tt.target, got, tt.want)
		}
	}
}

func TestDoseAdherence(t *testing.T) {
	tests := []struct {
		name  string
		doses []models.DoseLog
		want  int
	}{
		{"no doses", nil, 0},
		{"all taken", []models.DoseLog{{Status: models.DoseTaken}, {Status: models.DoseTaken}}, 100},
		{"half taken", []models.DoseLog{{Status: models.DoseTaken}, {Status: models.DoseMissed}}, 50},
		{"third taken", []models.DoseLog{
			{Status: models.DoseTaken},
			{Status: models.DoseSkipped},
			{Status: models.DoseMissed},
		}, 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DoseAdherence(tt.doses); got != tt.want {
				t.Errorf("DoseAdherence = %d, want %d", got, tt.want)
			}
		})
	}
}
