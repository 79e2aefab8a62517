// Package fees implements the permit fee computation pipeline:
// classification resolves to base fees, threshold rules add surcharges,
// and the aggregator produces the itemized immutable result.
package fees

import (
	"context"

	"envpermit/internal/models"
	"envpermit/internal/repositories"
	"envpermit/internal/validation"
)

type service struct {
	rates  repositories.RateScheduleRepository
	config Config
}

// NewService creates a fee calculation service.
func NewService(rates repositories.RateScheduleRepository, config Config) Service {
	if rates == nil {
		panic("rate schedule repository is required")
	}
	if config.EstimatedBands == nil {
		config = DefaultConfig()
	}
	return &service{
		rates:  rates,
		config: config,
	}
}

func (s *service) Calculate(ctx context.Context, req *models.FeeCalculationRequest) (*models.FeeResult, error) {
	if v := validation.ValidateFeeRequest(req); !v.Valid() {
		return nil, &RequestValidationError{Fields: v.Errors}
	}

	base, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	surcharges, err := computeSurcharges(s.config, req, base.AdminFee+base.TechnicalFee)
	if err != nil {
		return nil, err
	}

	return aggregate(base, surcharges), nil
}
