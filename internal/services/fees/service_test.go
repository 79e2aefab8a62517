package fees

import (
	"context"
	"errors"
	"testing"

	"envpermit/internal/models"
	"envpermit/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRateRepo serves rate rows from an in-memory map keyed by
// prescribed activity id.
type fakeRateRepo struct {
	entries map[string]*models.RateEntry
}

func (f *fakeRateRepo) Find(_ context.Context, activityType string, level models.ActivityLevel, permitType, prescribedActivityID string) (*models.RateEntry, error) {
	entry, ok := f.entries[prescribedActivityID]
	if !ok {
		return nil, repositories.ErrRateNotFound
	}
	if entry.ActivityType != activityType || entry.ActivityLevel != level || entry.PermitType != permitType {
		return nil, repositories.ErrRateNotFound
	}
	return entry, nil
}

func (f *fakeRateRepo) List(_ context.Context, _, _ int) ([]*models.RateEntry, int64, error) {
	return nil, 0, nil
}

func (f *fakeRateRepo) Upsert(_ context.Context, entry *models.RateEntry) error {
	f.entries[entry.PrescribedActivityID] = entry
	return nil
}

func newTestService() Service {
	repo := &fakeRateRepo{entries: map[string]*models.RateEntry{
		"PA-301": {
			ActivityType:         "mining",
			ActivityLevel:        models.ActivityLevel3,
			PermitType:           "Mining Permit",
			PrescribedActivityID: "PA-301",
			AdminFee:             7500,
			TechnicalFee:         15000,
			ProcessingDays:       90,
		},
	}}
	return NewService(repo, DefaultConfig())
}

func miningRequest() *models.FeeCalculationRequest {
	return &models.FeeCalculationRequest{
		ActivityType:         "mining",
		PermitType:           "Mining Permit",
		ActivityLevel:        models.ActivityLevel3,
		PrescribedActivityID: "PA-301",
	}
}

func TestCalculate_OfficialRate(t *testing.T) {
	svc := newTestService()

	result, err := svc.Calculate(context.Background(), miningRequest())
	require.NoError(t, err)

	assert.Equal(t, models.FeeSourceOfficial, result.Source)
	require.Len(t, result.Components, 2)
	assert.Equal(t, models.FeeCategoryAdministrative, result.Components[0].Category)
	assert.Equal(t, models.FeeCategoryTechnical, result.Components[1].Category)
	assert.Equal(t, 7500.0, result.Components[0].CalculatedAmount)
	assert.Equal(t, 15000.0, result.Components[1].CalculatedAmount)
	assert.Equal(t, 22500.0, result.TotalFee)
	assert.Equal(t, 90, result.ProcessingDays)
}

func TestCalculate_EstimatedFallback(t *testing.T) {
	svc := newTestService()

	req := miningRequest()
	req.PrescribedActivityID = "PA-999" // not in the rate table

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.FeeSourceEstimated, result.Source)
	require.Len(t, result.Components, 2)
	band := DefaultConfig().EstimatedBands[models.ActivityLevel3]
	assert.Equal(t, band.AdminFee+band.TechnicalFee, result.TotalFee)
	assert.Equal(t, models.MethodEstimated, result.Components[0].CalculationMethod)
}

func TestCalculate_ValidationErrors(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name   string
		mutate func(*models.FeeCalculationRequest)
		field  string
	}{
		{"missing activity type", func(r *models.FeeCalculationRequest) { r.ActivityType = "" }, "activityType"},
		{"missing permit type", func(r *models.FeeCalculationRequest) { r.PermitType = "" }, "permitType"},
		{"missing level", func(r *models.FeeCalculationRequest) { r.ActivityLevel = "" }, "activityLevel"},
		{"missing prescribed activity", func(r *models.FeeCalculationRequest) { r.PrescribedActivityID = "" }, "prescribedActivityId"},
		{"unknown level", func(r *models.FeeCalculationRequest) { r.ActivityLevel = "Level 9" }, "activityLevel"},
		{"negative project cost", func(r *models.FeeCalculationRequest) { neg := -1.0; r.ProjectCost = &neg }, "projectCost"},
		{"negative land area", func(r *models.FeeCalculationRequest) { neg := -5.0; r.LandAreaSqm = &neg }, "landAreaSqm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := miningRequest()
			tt.mutate(req)

			_, err := svc.Calculate(context.Background(), req)
			require.Error(t, err)

			var validationErr *RequestValidationError
			require.ErrorAs(t, err, &validationErr)
			found := false
			for _, f := range validationErr.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected a fault on field %s, got %v", tt.field, validationErr.Fields)
		})
	}
}

func TestCalculate_AllFieldFaultsReported(t *testing.T) {
	svc := newTestService()

	_, err := svc.Calculate(context.Background(), &models.FeeCalculationRequest{})
	require.Error(t, err)

	var validationErr *RequestValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Len(t, validationErr.Fields, 4)
}

func TestCalculate_LargeProjectSurcharge(t *testing.T) {
	svc := newTestService()

	req := miningRequest()
	cost := 2_000_000.0
	req.ProjectCost = &cost

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, result.Components, 3)
	surcharge := result.Components[2]
	assert.Equal(t, "Large Project Surcharge", surcharge.Name)
	assert.Equal(t, 0.10*(7500+15000), surcharge.CalculatedAmount)
	assert.Equal(t, 22500.0+2250.0, result.TotalFee)
}

func TestCalculate_ProjectCostAtThresholdAddsNothing(t *testing.T) {
	svc := newTestService()

	req := miningRequest()
	cost := 1_000_000.0
	req.ProjectCost = &cost

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.Components, 2)
	assert.Equal(t, 22500.0, result.TotalFee)
}

func TestCalculate_LargeAreaSurcharge(t *testing.T) {
	svc := newTestService()

	req := miningRequest()
	area := 7_500.0
	req.LandAreaSqm = &area

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, result.Components, 3)
	surcharge := result.Components[2]
	assert.Equal(t, "Large Area Surcharge", surcharge.Name)
	assert.Equal(t, 4000.0, surcharge.CalculatedAmount) // ceil(7500/1000) * 500
	assert.Equal(t, 26500.0, result.TotalFee)
}

func TestCalculate_SurchargesStackInOrder(t *testing.T) {
	svc := newTestService()

	req := miningRequest()
	cost := 3_000_000.0
	area := 12_000.0
	req.ProjectCost = &cost
	req.LandAreaSqm = &area
	req.HazardousSubstanceType = "cyanide"

	result, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, result.Components, 5)
	assert.Equal(t, "Administration Fee", result.Components[0].Name)
	assert.Equal(t, "Technical Assessment Fee", result.Components[1].Name)
	assert.Equal(t, "Large Project Surcharge", result.Components[2].Name)
	assert.Equal(t, "Large Area Surcharge", result.Components[3].Name)
	assert.Equal(t, "Hazardous Substance Handling", result.Components[4].Name)

	var sum float64
	for _, comp := range result.Components {
		sum += comp.CalculatedAmount
	}
	assert.Equal(t, sum, result.TotalFee)
}

func TestCalculate_Deterministic(t *testing.T) {
	svc := newTestService()

	req := miningRequest()
	cost := 2_000_000.0
	area := 9_999.0
	req.ProjectCost = &cost
	req.LandAreaSqm = &area

	first, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := svc.Calculate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCalculate_NewResultPerCall(t *testing.T) {
	svc := newTestService()

	first, err := svc.Calculate(context.Background(), miningRequest())
	require.NoError(t, err)
	second, err := svc.Calculate(context.Background(), miningRequest())
	require.NoError(t, err)

	// Mutating one result must not bleed into the other.
	first.Components[0].CalculatedAmount = -1
	assert.Equal(t, 7500.0, second.Components[0].CalculatedAmount)
}

func TestCalculate_RepoFailurePropagates(t *testing.T) {
	repo := &failingRateRepo{}
	svc := NewService(repo, DefaultConfig())

	_, err := svc.Calculate(context.Background(), miningRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrClassificationNotFound)
}

type failingRateRepo struct{}

func (f *failingRateRepo) Find(_ context.Context, _ string, _ models.ActivityLevel, _, _ string) (*models.RateEntry, error) {
	return nil, errors.New("connection refused")
}

func (f *failingRateRepo) List(_ context.Context, _, _ int) ([]*models.RateEntry, int64, error) {
	return nil, 0, errors.New("connection refused")
}

func (f *failingRateRepo) Upsert(_ context.Context, _ *models.RateEntry) error {
	return errors.New("connection refused")
}
