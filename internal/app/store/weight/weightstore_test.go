package weightstore_test

import (
	"context"
	"math"
	"testing"
	"time"

	weightstore "github.com/kneetrack/kneetrack/internal/app/store/weight"
	"github.com/kneetrack/kneetrack/internal/domain/models"
	"github.com/kneetrack/kneetrack/internal/testutil"
)

func TestCreate_DerivesBMI(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := weightstore.New(db)
	ctx := context.Background()
	f := testutil.NewFixtures(t, db)
	patient := f.CreatePatient(ctx)

	created, err := s.Create(ctx, models.WeightLog{
		UserID:   patient.ID,
		WeightKg: 72.5,
	}, 170)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	// 72.5 kg at 1.70 m is a BMI of 25.1.
	if math.Abs(created.BMI-25.1) > 0.05 {
		t.Errorf("BMI = %.2f, want ~25.1", created.BMI)
	}
	if created.MeasurementDate.IsZero() {
		t.Error("MeasurementDate not defaulted")
	}
}

func TestCreate_ZeroHeightLeavesBMIUnset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := weightstore.New(db)
	ctx := context.Background()
	f := testutil.NewFixtures(t, db)
	patient := f.CreatePatient(ctx)

	created, err := s.Create(ctx, models.WeightLog{UserID: patient.ID, WeightKg: 80}, 0)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.BMI != 0 {
		t.Errorf("BMI = %v, want 0 without a height", created.BMI)
	}
}

func TestLatest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := weightstore.New(db)
	ctx := context.Background()
	f := testutil.NewFixtures(t, db)
	patient := f.CreatePatient(ctx)

	latest, err := s.Latest(ctx, patient.ID)
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if latest != nil {
		t.Fatalf("Latest() = %+v, want nil with no measurements", latest)
	}

	old := time.Now().AddDate(0, -1, 0)
	if _, err := s.Create(ctx, models.WeightLog{UserID: patient.ID, WeightKg: 80, MeasurementDate: old}, 170); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	newer, err := s.Create(ctx, models.WeightLog{UserID: patient.ID, WeightKg: 78}, 170)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	latest, err = s.Latest(ctx, patient.ID)
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if latest == nil || latest.ID != newer.ID {
		t.Errorf("Latest() did not return the most recent measurement")
	}
}
