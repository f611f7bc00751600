package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Session is the server-side record persisted for an authenticated user.
// ID is an opaque session identifier (random URL-safe string) that doubles
// as the cookie value.
type Session struct {
	ID        string    `json:"id"         db:"id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the session expiry has passed.
func (s Session) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }

// Identity represents the profile returned by an identity provider.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	Subject       string // provider-stable user identifier
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	Picture       string // resolved image URL, empty when the provider sent none
}

// Transaction is the ephemeral OAuth flow state carried in the state cookie
// between initiation and callback.
type Transaction struct {
	State        string `json:"state"`
	CodeVerifier string `json:"codeVerifier"`
	RedirectTo   string `json:"redirectTo"`
}
