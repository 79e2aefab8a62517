package fees

import (
	"fmt"

	"envpermit/internal/models"
)

// aggregate merges base fees and surcharges into the final ordered
// breakdown. Component order is fixed: administration, technical, then
// surcharges in evaluation order, so repeated runs of the same request
// reproduce the same breakdown.
func aggregate(base *baseRates, surcharges []models.FeeComponent) *models.FeeResult {
	method := models.MethodOfficialRate
	if base.Source == models.FeeSourceEstimated {
		method = models.MethodEstimated
	}

	components := models.FeeComponentList{
		{
			ID:                 "base-administration",
			Name:               "Administration Fee",
			Category:           models.FeeCategoryAdministrative,
			CalculationMethod:  method,
			BaseAmount:         base.AdminFee,
			CalculatedAmount:   base.AdminFee,
			FormulaDescription: fmt.Sprintf("%s administration fee", base.Source),
			IsMandatory:        true,
		},
		{
			ID:                 "base-technical",
			Name:               "Technical Assessment Fee",
			Category:           models.FeeCategoryTechnical,
			CalculationMethod:  method,
			BaseAmount:         base.TechnicalFee,
			CalculatedAmount:   base.TechnicalFee,
			FormulaDescription: fmt.Sprintf("%s technical assessment fee", base.Source),
			IsMandatory:        true,
		},
	}
	components = append(components, surcharges...)

	var total float64
	for _, c := range components {
		total += c.CalculatedAmount
	}

	return &models.FeeResult{
		Components:     components,
		TotalFee:       total,
		Source:         base.Source,
		ProcessingDays: base.ProcessingDays,
	}
}
