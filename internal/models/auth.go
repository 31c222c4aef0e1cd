package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the identity carried by an access token.
type Session struct {
	Name           string    `json:"name"`
	TeacherID      string    `json:"teacher_id,omitempty"`
	Role           RoleKey   `json:"role"`
	RoleLabel      string    `json:"role_label"`
	Email          string    `json:"email"`
	ImpersonatedBy string    `json:"impersonated_by,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
}

// Can resolves the session role and checks a permission.
func (s Session) Can(p Permission) bool {
	role, err := s.Role.Role()
	if err != nil {
		return false
	}
	return role.Can(p)
}

// JWTClaims defines the claims embedded in access tokens.
type JWTClaims struct {
	Name           string  `json:"name"`
	TeacherID      string  `json:"tid,omitempty"`
	Role           RoleKey `json:"role"`
	Email          string  `json:"email"`
	ImpersonatedBy string  `json:"imp,omitempty"`
	jwt.RegisteredClaims
}

// LoginResponse returns the issued token and session.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Session     Session       `json:"session"`
	School      SchoolProfile `json:"school"`
}

// RosterEntry is one selectable login identity.
type RosterEntry struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Role      RoleKey `json:"role"`
	RoleLabel string  `json:"role_label"`
}
