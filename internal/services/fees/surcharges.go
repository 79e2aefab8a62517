package fees

import (
	"fmt"
	"math"

	"envpermit/internal/models"
)

// areaTier labels the band a land area falls in. The tier never changes
// the surcharge amount; it is carried on the component for display.
func areaTier(areaSqm float64) string {
	switch {
	case areaSqm <= 1_000:
		return "Tier 1"
	case areaSqm <= 5_000:
		return "Tier 2"
	default:
		return "Tier 3"
	}
}

// computeSurcharges derives the surcharge components for a request.
// Pure function: the same request and base total always produce the
// same components in the same order (project cost, area, hazard,
// waste). All applicable surcharges stack. Negative inputs fail with
// ErrInvalidParameter; nothing is clamped.
func computeSurcharges(cfg Config, req *models.FeeCalculationRequest, baseTotal float64) ([]models.FeeComponent, error) {
	var components []models.FeeComponent

	if req.ProjectCost != nil {
		cost := *req.ProjectCost
		if cost < 0 {
			return nil, fmt.Errorf("%w: projectCost %v is negative", ErrInvalidParameter, cost)
		}
		if cost > cfg.LargeProjectThreshold {
			amount := baseTotal * cfg.LargeProjectRate
			components = append(components, models.FeeComponent{
				ID:                "surcharge-large-project",
				Name:              "Large Project Surcharge",
				Category:          models.FeeCategoryProjectBased,
				CalculationMethod: models.MethodPercentage,
				BaseAmount:        baseTotal,
				CalculatedAmount:  amount,
				FormulaDescription: fmt.Sprintf("%.0f%% of base fees %.2f (project cost %.2f exceeds %.0f)",
					cfg.LargeProjectRate*100, baseTotal, cost, cfg.LargeProjectThreshold),
				IsMandatory: true,
			})
		}
	}

	if req.LandAreaSqm != nil {
		area := *req.LandAreaSqm
		if area < 0 {
			return nil, fmt.Errorf("%w: landAreaSqm %v is negative", ErrInvalidParameter, area)
		}
		if area > cfg.LargeAreaThreshold {
			bands := math.Ceil(area / cfg.AreaBandSize)
			amount := bands * cfg.AreaBandRate
			components = append(components, models.FeeComponent{
				ID:                "surcharge-large-area",
				Name:              "Large Area Surcharge",
				Category:          models.FeeCategoryAreaBased,
				CalculationMethod: models.MethodTiered,
				BaseAmount:        cfg.AreaBandRate,
				CalculatedAmount:  amount,
				FormulaDescription: fmt.Sprintf("ceil(%.0f / %.0f) x %.0f = %.2f (%s)",
					area, cfg.AreaBandSize, cfg.AreaBandRate, amount, areaTier(area)),
				IsMandatory: true,
			})
		}
	}

	if req.HazardousSubstanceType != "" && req.HazardousSubstanceType != "none" {
		amount := cfg.HazardRates[req.HazardousSubstanceType]
		if amount < 0 {
			return nil, fmt.Errorf("%w: hazard rate for %q is negative", ErrInvalidParameter, req.HazardousSubstanceType)
		}
		components = append(components, models.FeeComponent{
			ID:                 "surcharge-hazardous-substance",
			Name:               "Hazardous Substance Handling",
			Category:           models.FeeCategorySpecial,
			CalculationMethod:  models.MethodOfficialRate,
			BaseAmount:         amount,
			CalculatedAmount:   amount,
			FormulaDescription: fmt.Sprintf("flat rate for substance type %q", req.HazardousSubstanceType),
			IsMandatory:        true,
			Notes:              "rate table pending gazettal; amount may be zero",
		})
	}

	if req.WasteType != "" && req.WasteType != "none" {
		amount := cfg.WasteRates[req.WasteType]
		if amount < 0 {
			return nil, fmt.Errorf("%w: waste rate for %q is negative", ErrInvalidParameter, req.WasteType)
		}
		components = append(components, models.FeeComponent{
			ID:                 "surcharge-waste-handling",
			Name:               "Waste Handling",
			Category:           models.FeeCategorySpecial,
			CalculationMethod:  models.MethodOfficialRate,
			BaseAmount:         amount,
			CalculatedAmount:   amount,
			FormulaDescription: fmt.Sprintf("flat rate for waste type %q", req.WasteType),
			IsMandatory:        true,
			Notes:              "rate table pending gazettal; amount may be zero",
		})
	}

	return components, nil
}
