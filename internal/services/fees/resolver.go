package fees

import (
	"context"
	"errors"
	"fmt"

	"envpermit/internal/models"
	"envpermit/internal/repositories"
)

// baseRates is what the resolver hands to the aggregator: the two base
// fee amounts plus where they came from.
type baseRates struct {
	AdminFee       float64
	TechnicalFee   float64
	Source         models.FeeSource
	ProcessingDays int
}

// resolve looks up the official rate table for the classification. A
// missing row is not an error: applicants must always receive a
// quotable number, so the lookup degrades to the level-based estimation
// band. Only an unrecognised activity level fails.
func (s *service) resolve(ctx context.Context, req *models.FeeCalculationRequest) (*baseRates, error) {
	if !req.ActivityLevel.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrClassificationNotFound, req.ActivityLevel)
	}

	entry, err := s.rates.Find(ctx, req.ActivityType, req.ActivityLevel, req.PermitType, req.PrescribedActivityID)
	if err == nil {
		return &baseRates{
			AdminFee:       entry.AdminFee,
			TechnicalFee:   entry.TechnicalFee,
			Source:         models.FeeSourceOfficial,
			ProcessingDays: entry.ProcessingDays,
		}, nil
	}
	if !errors.Is(err, repositories.ErrRateNotFound) {
		return nil, fmt.Errorf("rate schedule lookup: %w", err)
	}

	band, ok := s.config.EstimatedBands[req.ActivityLevel]
	if !ok {
		return nil, fmt.Errorf("%w: no estimation band for %q", ErrClassificationNotFound, req.ActivityLevel)
	}
	return &baseRates{
		AdminFee:       band.AdminFee,
		TechnicalFee:   band.TechnicalFee,
		Source:         models.FeeSourceEstimated,
		ProcessingDays: band.ProcessingDays,
	}, nil
}
