package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	// Fee permissions
	PermissionFeeCalculate = "fee:calculate"
	PermissionRateRead     = "rate:read"
	PermissionRateWrite    = "rate:write"

	// Application permissions
	PermissionApplicationRead   = "application:read"
	PermissionApplicationWrite  = "application:write"
	PermissionApplicationReview = "application:review"

	// Assessment permissions
	PermissionAssessmentRead   = "assessment:read"
	PermissionAssessmentDecide = "assessment:decide"

	// Admin permissions
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint     `json:"user_id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions"`
	TokenVersion int      `json:"token_version"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionFeeCalculate,
			PermissionRateRead,
			PermissionRateWrite,
			PermissionApplicationRead,
			PermissionApplicationWrite,
			PermissionApplicationReview,
			PermissionAssessmentRead,
			PermissionAssessmentDecide,
			PermissionReadAdmin,
			PermissionWriteAdmin,
		}
	case RoleRegistry, RoleCompliance, RoleFinance, RoleDirector:
		return []string{
			PermissionFeeCalculate,
			PermissionRateRead,
			PermissionApplicationRead,
			PermissionApplicationReview,
			PermissionAssessmentRead,
			PermissionAssessmentDecide,
		}
	case RoleApplicant:
		return []string{
			PermissionFeeCalculate,
			PermissionRateRead,
			PermissionApplicationRead,
			PermissionApplicationWrite,
		}
	default:
		return []string{}
	}
}
