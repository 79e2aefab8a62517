package validation

import "envpermit/internal/models"

// ValidateFeeRequest checks the four required classification fields and
// the numeric ranges of the optional inputs. Every fault is reported;
// a request with faults never reaches computation.
func ValidateFeeRequest(req *models.FeeCalculationRequest) *Validator {
	v := New()

	v.Check(req.ActivityType != "", "activityType", "must be provided")
	v.Check(req.PermitType != "", "permitType", "must be provided")
	v.Check(req.ActivityLevel != "", "activityLevel", "must be provided")
	v.Check(req.PrescribedActivityID != "", "prescribedActivityId", "must be provided")

	if req.ActivityLevel != "" {
		v.Check(req.ActivityLevel.Valid(), "activityLevel",
			"must be one of Level 1, Level 2, Level 3")
	}
	if req.ProjectCost != nil {
		v.Check(*req.ProjectCost >= 0, "projectCost", "must not be negative")
	}
	if req.LandAreaSqm != nil {
		v.Check(*req.LandAreaSqm >= 0, "landAreaSqm", "must not be negative")
	}
	if req.DurationYears != nil {
		v.Check(*req.DurationYears >= 0, "durationYears", "must not be negative")
	}

	return v
}
