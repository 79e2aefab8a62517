package models

import (
	"time"

	"gorm.io/gorm"
)

// Reviewer unit roles. Applicants hold RoleApplicant; internal staff
// hold the role of the unit they review for.
const (
	RoleApplicant  = "applicant"
	RoleRegistry   = "registry"
	RoleCompliance = "compliance"
	RoleFinance    = "finance"
	RoleDirector   = "director"
	RoleAdmin      = "admin"
)

type User struct {
	gorm.Model
	Email               string `gorm:"uniqueIndex;not null"`
	Password            string `gorm:"not null"`
	Name                string `gorm:"not null"`
	Role                string `gorm:"default:'applicant'"`
	Unit                string // organisational unit label, informational
	Status              string `gorm:"default:'active'"`
	LastLoginAt         time.Time
	LastLoginIP         string
	FailedLoginAttempts int `gorm:"default:0"`
	AccountLockoutUntil *time.Time
	TokenVersion        int `gorm:"default:1"`
}

// IsReviewer reports whether the user belongs to any internal review unit.
func (u *User) IsReviewer() bool {
	switch u.Role {
	case RoleRegistry, RoleCompliance, RoleFinance, RoleDirector, RoleAdmin:
		return true
	}
	return false
}
