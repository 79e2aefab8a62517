package fees

import (
	"context"

	"envpermit/internal/models"
)

// Service computes itemized regulatory fees for permit applications.
type Service interface {
	// Calculate validates the request, resolves base fees, applies
	// surcharges and returns the itemized result. The result is a new
	// value on every call; nothing is cached or mutated.
	Calculate(ctx context.Context, req *models.FeeCalculationRequest) (*models.FeeResult, error)
}

// RateBand is the estimation fallback for one activity level, used when
// the official rate table has no row for a classification.
type RateBand struct {
	AdminFee       float64
	TechnicalFee   float64
	ProcessingDays int
}

// Config holds the fee rule parameters. Defaults reproduce the
// published schedule; the hazard and waste tables default to zero-rated
// entries so the components still appear on the breakdown.
type Config struct {
	EstimatedBands map[models.ActivityLevel]RateBand

	LargeProjectThreshold float64
	LargeProjectRate      float64

	LargeAreaThreshold float64
	AreaBandSize       float64
	AreaBandRate       float64

	// HazardRates and WasteRates map a declared substance or waste type
	// to a flat surcharge amount. Unknown types rate as zero.
	HazardRates map[string]float64
	WasteRates  map[string]float64
}

// DefaultConfig returns the current fee rule parameters.
func DefaultConfig() Config {
	return Config{
		EstimatedBands: map[models.ActivityLevel]RateBand{
			models.ActivityLevel1: {AdminFee: 500, TechnicalFee: 1000, ProcessingDays: 30},
			models.ActivityLevel2: {AdminFee: 1500, TechnicalFee: 3000, ProcessingDays: 60},
			models.ActivityLevel3: {AdminFee: 5000, TechnicalFee: 10000, ProcessingDays: 90},
		},
		LargeProjectThreshold: 1_000_000,
		LargeProjectRate:      0.10,
		LargeAreaThreshold:    5_000,
		AreaBandSize:          1_000,
		AreaBandRate:          500,
		HazardRates:           map[string]float64{},
		WasteRates:            map[string]float64{},
	}
}
