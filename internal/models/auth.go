package models

import "github.com/golang-jwt/jwt/v5"

// UserRole scopes admin-only operations.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleOfficer UserRole = "officer"
	RoleStudent UserRole = "student"
)

// JWTClaims are the access-token claims this service validates. Token
// issuance lives in the identity service.
type JWTClaims struct {
	UserID string   `json:"uid"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
