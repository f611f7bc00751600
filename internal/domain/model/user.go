package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
)

const (
	maxEmailLen      = 254
	maxNameLen       = 100
	minPasswordLen   = 6
	maxPasswordLen   = 128
	maxResetTokenLen = 128
)

// User is the identity record behind every Monanga Business account.
// PasswordHash is nil for OAuth-only accounts; password login for those
// accounts is only possible after a password reset sets one.
type User struct {
	ID            string          `json:"id"              db:"id"`
	Email         string          `json:"email"           db:"email"`
	PasswordHash  *string         `json:"-"               db:"password_hash"`
	FirstName     string          `json:"first_name"      db:"first_name"`
	LastName      string          `json:"last_name"       db:"last_name"`
	Username      string          `json:"username"        db:"username"`
	Image         *string         `json:"image,omitempty" db:"image"`
	EmailVerified bool            `json:"email_verified"  db:"email_verified"`
	Role          domainauth.Role `json:"role"            db:"role"`
	ResetToken    *string         `json:"-"               db:"reset_token"`
	ResetTokenExp *time.Time      `json:"-"               db:"reset_token_expires_at"`
	CreatedAt     time.Time       `json:"created_at"      db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"      db:"updated_at"`
}

// Sanitized returns a copy safe to serialize to clients. Credential and
// reset-token fields are already excluded by json tags; this additionally
// discards the pointers so a sanitized copy can be logged without leaking.
func (u User) Sanitized() User {
	u.PasswordHash = nil
	u.ResetToken = nil
	u.ResetTokenExp = nil
	return u
}

// NormalizeEmail lowercases and trims an email address. Applied on every
// path that stores or looks up an email so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	e := strings.TrimSpace(email)
	if e == "" {
		return errors.New("email is required")
	}
	if utf8.RuneCountInString(e) > maxEmailLen {
		return errors.New("email cannot exceed 254 characters")
	}
	if _, err := mail.ParseAddress(e); err != nil {
		return errors.New("email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return errors.New("password must be at least 6 characters")
	}
	if utf8.RuneCountInString(password) > maxPasswordLen {
		return errors.New("password cannot exceed 128 characters")
	}
	return nil
}

// RegisterRequest contains fields to create a new account with a password.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" {
		return errors.New("firstName is required")
	}
	if utf8.RuneCountInString(r.FirstName) > maxNameLen {
		return errors.New("firstName cannot exceed 100 characters")
	}
	if utf8.RuneCountInString(r.LastName) > maxNameLen {
		return errors.New("lastName cannot exceed 100 characters")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return validatePassword(r.Password)
}

// LoginRequest contains password login credentials. The field is named
// "username" on the wire for historical reasons; it carries the email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// ChangePasswordRequest carries an authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return errors.New("currentPassword is required")
	}
	return validatePassword(r.NewPassword)
}

// ForgotPasswordRequest asks for a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r *ForgotPasswordRequest) Validate() error {
	return validateEmail(r.Email)
}

// ResetPasswordRequest redeems a reset token for a new password.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *ResetPasswordRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return errors.New("token is required")
	}
	if utf8.RuneCountInString(r.Token) > maxResetTokenLen {
		return errors.New("token is malformed")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return validatePassword(r.Password)
}

// VerifyResetTokenRequest checks a reset token without consuming it.
type VerifyResetTokenRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

func (r *VerifyResetTokenRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return errors.New("token is required")
	}
	return validateEmail(r.Email)
}
