package models

import "github.com/golang-jwt/jwt/v5"

// TenantClaims is the bearer token payload supplied by the school API boundary.
type TenantClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	SchoolID string   `json:"school_id"`
	jwt.RegisteredClaims
}
