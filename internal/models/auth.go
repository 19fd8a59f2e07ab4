package models

import "github.com/golang-jwt/jwt/v5"

// UserRole mirrors the role groups enforced at the engine boundary.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleRegistrar UserRole = "REGISTRAR"
	RoleFaculty   UserRole = "FACULTY"
	RoleStudent   UserRole = "STUDENT"
)

// JWTClaims represents the JWT payload for access tokens. Tokens are issued
// by the external auth service; this API only verifies them.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
