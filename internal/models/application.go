package models

import "gorm.io/gorm"

// Application lifecycle statuses as seen by the applicant.
const (
	ApplicationStatusDraft       = "draft"
	ApplicationStatusSubmitted   = "submitted"
	ApplicationStatusUnderReview = "under_review"
	ApplicationStatusApproved    = "approved"
	ApplicationStatusRejected    = "rejected"
)

// PermitApplication is the applicant-facing record a fee quote and an
// assessment hang off. Reference is the human-facing application number.
type PermitApplication struct {
	gorm.Model
	Reference            string        `gorm:"uniqueIndex;not null"`
	ApplicantID          uint          `gorm:"index;not null"`
	ActivityType         string        `gorm:"not null"`
	ActivitySubCategory  string
	PermitType           string        `gorm:"not null"`
	ActivityLevel        ActivityLevel `gorm:"not null"`
	PrescribedActivityID string        `gorm:"not null"`
	Status               string        `gorm:"default:'draft'"`
}
