package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// Activity levels recognised by the fee schedule.
type ActivityLevel string

const (
	ActivityLevel1 ActivityLevel = "Level 1"
	ActivityLevel2 ActivityLevel = "Level 2"
	ActivityLevel3 ActivityLevel = "Level 3"
)

// Valid reports whether the level is one of the three recognised levels.
func (l ActivityLevel) Valid() bool {
	switch l {
	case ActivityLevel1, ActivityLevel2, ActivityLevel3:
		return true
	}
	return false
}

type FeeCategory string

const (
	FeeCategoryAdministrative FeeCategory = "administrative"
	FeeCategoryTechnical      FeeCategory = "technical"
	FeeCategoryProjectBased   FeeCategory = "project-based"
	FeeCategoryAreaBased      FeeCategory = "area-based"
	FeeCategorySpecial        FeeCategory = "special"
)

type CalculationMethod string

const (
	MethodOfficialRate CalculationMethod = "official-rate"
	MethodEstimated    CalculationMethod = "estimated"
	MethodPercentage   CalculationMethod = "percentage"
	MethodTiered       CalculationMethod = "tiered"
)

// FeeSource records whether a quote came from the official rate table
// or the level-based estimation fallback.
type FeeSource string

const (
	FeeSourceOfficial  FeeSource = "official"
	FeeSourceEstimated FeeSource = "estimated"
)

// FeeComponent is one itemized line of a computed fee.
// CalculatedAmount differs from BaseAmount only when a multiplier or
// tier rule was applied.
type FeeComponent struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Category           FeeCategory       `json:"category"`
	CalculationMethod  CalculationMethod `json:"calculationMethod"`
	BaseAmount         float64           `json:"baseAmount"`
	CalculatedAmount   float64           `json:"calculatedAmount"`
	FormulaDescription string            `json:"formulaDescription"`
	IsMandatory        bool              `json:"isMandatory"`
	Notes              string            `json:"notes,omitempty"`
}

// FeeComponentList stores an ordered component breakdown as a JSONB column.
type FeeComponentList []FeeComponent

func (l FeeComponentList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *FeeComponentList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("cannot scan fee components: not a byte slice")
	}
	return json.Unmarshal(bytes, l)
}

// FeeCalculationRequest carries the classification of an application and
// the optional quantitative inputs the surcharge rules read. The four
// classification fields are required; the pointers distinguish "absent"
// from zero.
type FeeCalculationRequest struct {
	ActivityType         string        `json:"activityType"`
	ActivitySubCategory  string        `json:"activitySubCategory,omitempty"`
	PermitType           string        `json:"permitType"`
	ActivityLevel        ActivityLevel `json:"activityLevel"`
	PrescribedActivityID string        `json:"prescribedActivityId"`

	ProjectCost            *float64 `json:"projectCost,omitempty"`
	LandAreaSqm            *float64 `json:"landAreaSqm,omitempty"`
	DurationYears          *int     `json:"durationYears,omitempty"`
	HazardousSubstanceType string   `json:"hazardousSubstanceType,omitempty"`
	WasteType              string   `json:"wasteType,omitempty"`
}

// FeeResult is an immutable itemized quote. A re-run produces a new
// FeeResult; results are never mutated in place.
type FeeResult struct {
	Components     FeeComponentList `json:"components"`
	TotalFee       float64          `json:"totalFee"`
	Source         FeeSource        `json:"source"`
	ProcessingDays int              `json:"processingDays"`
}

// RateEntry is one row of the official rate schedule, keyed by the four
// classification inputs.
type RateEntry struct {
	gorm.Model
	ActivityType         string        `gorm:"index:idx_rate_key,unique;not null"`
	ActivityLevel        ActivityLevel `gorm:"index:idx_rate_key,unique;not null"`
	PermitType           string        `gorm:"index:idx_rate_key,unique;not null"`
	PrescribedActivityID string        `gorm:"index:idx_rate_key,unique;not null"`
	AdminFee             float64       `gorm:"not null"`
	TechnicalFee         float64       `gorm:"not null"`
	ProcessingDays       int           `gorm:"default:30"`
}

// FeeRecord is a FeeResult persisted against an application. Records are
// append-only: re-quoting an application adds a record, it never
// rewrites one. RequestInputs keeps the quantitative inputs the quote
// was computed from, for audit.
type FeeRecord struct {
	gorm.Model
	ApplicationID  uint             `gorm:"index;not null"`
	Components     FeeComponentList `gorm:"type:jsonb"`
	TotalFee       float64          `gorm:"not null"`
	Source         FeeSource        `gorm:"not null"`
	ProcessingDays int
	RequestInputs  JSON `gorm:"type:jsonb"`
}
