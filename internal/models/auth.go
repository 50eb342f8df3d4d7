package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Actor is the explicit caller identity passed into every mutation.
type Actor struct {
	UserID string
	Email  string
	Name   string
	Roles  []string
}

// HasRole reports whether the actor holds role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Can reports whether the actor's roles grant permission.
func (a Actor) Can(permission string) bool {
	return HasPermission(a.Roles, permission)
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Actor converts claims into a caller identity.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.UserID, Email: c.Email, Name: c.Name, Roles: c.Roles}
}

// MagicLinkToken is a pending email sign-in.
type MagicLinkToken struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// MagicLinkRequest starts an email sign-in.
type MagicLinkRequest struct {
	Email       string `json:"email" validate:"required,email"`
	CallbackURL string `json:"callback_url" validate:"omitempty,url"`
}

// VerifyMagicLinkRequest completes an email sign-in.
type VerifyMagicLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

// GoogleSignInRequest carries a Google ID token.
type GoogleSignInRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// AuthResponse returns the issued access token.
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        User      `json:"user"`
}

// RequestMeta carries client details for audit records.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Audit actions recorded for sign-ins and administrative changes.
const (
	AuditActionLogin      = "LOGIN"
	AuditActionRoleChange = "ROLE_CHANGE"
	AuditActionDelete     = "DELETE"
)
