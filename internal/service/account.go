package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
	"github.com/monanga/monanga-business/internal/domain/model"
	apperrors "github.com/monanga/monanga-business/internal/errors"
	"github.com/monanga/monanga-business/internal/ports"
)

const resetTokenBytes = 32

// ErrInvalidCredentials is returned for both unknown emails and wrong
// passwords so a caller cannot distinguish the two.
var ErrInvalidCredentials = apperrors.Unauthorized("invalid username or password")

// AccountServiceOptions groups dependencies for AccountService.
type AccountServiceOptions struct {
	Users    ports.UserRepository
	Sessions *SessionService
	Mailer   ports.Mailer

	// BaseURL is the externally visible application URL used in reset links.
	BaseURL string
	// SessionTTL is the lifetime of password-login sessions.
	SessionTTL time.Duration
	// ResetTokenTTL is the lifetime of password-reset tokens.
	ResetTokenTTL time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// AccountService orchestrates account lifecycle operations: registration,
// password login, password changes and resets, and account deletion.
type AccountService struct {
	users         ports.UserRepository
	sessions      *SessionService
	mailer        ports.Mailer
	baseURL       string
	sessionTTL    time.Duration
	resetTokenTTL time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewAccountService constructs a new AccountService.
func NewAccountService(opts AccountServiceOptions) (*AccountService, error) {
	if opts.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("session service is required")
	}
	if opts.Mailer == nil {
		return nil, errors.New("mailer is required")
	}
	if opts.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 168 * time.Hour
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AccountService{
		users:         opts.Users,
		sessions:      opts.Sessions,
		mailer:        opts.Mailer,
		baseURL:       strings.TrimSuffix(opts.BaseURL, "/"),
		sessionTTL:    opts.SessionTTL,
		resetTokenTTL: opts.ResetTokenTTL,
		logger:        opts.Logger,
		now:           opts.Now,
	}, nil
}

// Register creates a password-backed account. Duplicate emails (compared
// case-insensitively) are rejected with a conflict error.
func (s *AccountService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	email := model.NormalizeEmail(req.Email)

	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		if !apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("check existing email: %w", err)
		}
	} else if existing != nil {
		return nil, apperrors.ValidationField("email", "an account with this email already exists")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	username, err := deriveUsername(ctx, s.users, email)
	if err != nil {
		return nil, fmt.Errorf("derive username: %w", err)
	}

	user, err := s.users.Create(ctx, &model.User{
		ID:            uuid.NewString(),
		Email:         email,
		PasswordHash:  &hash,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Username:      username,
		EmailVerified: false,
		Role:          domainauth.RoleUser,
	})
	if err != nil {
		// A concurrent registration can slip past the pre-check; surface
		// the unique violation the same way.
		if apperrors.IsConflict(err) {
			return nil, apperrors.ValidationField("email", "an account with this email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// LoginResult carries the authenticated user and their fresh session.
type LoginResult struct {
	User    *model.User
	Session domainauth.Session
}

// Login verifies credentials and issues a session. Both an unknown email and
// a wrong password produce ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, req *model.LoginRequest) (*LoginResult, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	user, err := s.users.GetByEmail(ctx, model.NormalizeEmail(req.Username))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	var stored string
	if user.PasswordHash != nil {
		stored = *user.PasswordHash
	}
	if !VerifyPassword(req.Password, stored) {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.ID, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &LoginResult{User: user, Session: sess}, nil
}

// ChangePassword verifies the current password before storing the new one.
func (s *AccountService) ChangePassword(ctx context.Context, userID string, req *model.ChangePasswordRequest) error {
	if req == nil {
		return apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return apperrors.Validation(err.Error())
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}

	var stored string
	if user.PasswordHash != nil {
		stored = *user.PasswordHash
	}
	if !VerifyPassword(req.CurrentPassword, stored) {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// DeleteAccount removes the user and every one of their sessions in one
// transaction. A user already gone (e.g. a concurrent deletion) surfaces as
// not found.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.Validation("user id is required")
	}
	if err := s.users.DeleteWithSessions(ctx, userID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NotFound("account not found")
		}
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// ForgotPassword issues a reset token and emails a reset link. The caller
// receives no signal about whether the email exists; failures to find the
// user are logged and swallowed.
func (s *AccountService) ForgotPassword(ctx context.Context, req *model.ForgotPasswordRequest) error {
	if req == nil {
		return apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return apperrors.Validation(err.Error())
	}

	email := model.NormalizeEmail(req.Email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email", "email", maskEmail(email))
			return nil
		}
		return fmt.Errorf("look up user: %w", err)
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	expiresAt := s.now().UTC().Add(s.resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := s.baseURL + "/reset-password?" + url.Values{
		"token": {token},
		"email": {email},
	}.Encode()
	if err := s.mailer.SendPasswordReset(ctx, email, resetURL); err != nil {
		// Swallowed like the unknown-email case: a distinct failure here
		// would tell the caller the address exists.
		s.logger.ErrorContext(ctx, "send reset mail failed", "email", maskEmail(email), "error", err)
	}
	return nil
}

// ResetPassword redeems a reset token for a new password and clears the
// token fields.
func (s *AccountService) ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error {
	if req == nil {
		return apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return apperrors.Validation(err.Error())
	}

	user, err := s.verifyResetToken(ctx, req.Token, req.Email)
	if err != nil {
		return err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}

// VerifyResetToken checks a token without consuming it, so the reset form
// can reject a dead link before the user types a new password.
func (s *AccountService) VerifyResetToken(ctx context.Context, req *model.VerifyResetTokenRequest) error {
	if req == nil {
		return apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return apperrors.Validation(err.Error())
	}
	_, err := s.verifyResetToken(ctx, req.Token, req.Email)
	return err
}

var errResetTokenInvalid = apperrors.Validation("reset token is invalid or has expired")

func (s *AccountService) verifyResetToken(ctx context.Context, token, email string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, errResetTokenInvalid
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if user.ResetToken == nil || user.ResetTokenExp == nil {
		return nil, errResetTokenInvalid
	}
	if *user.ResetToken != token {
		return nil, errResetTokenInvalid
	}
	if s.now().After(*user.ResetTokenExp) {
		return nil, errResetTokenInvalid
	}
	return user, nil
}

// deriveUsername builds a username from the email local-part, appending a
// random numeric suffix until it is unique.
func deriveUsername(ctx context.Context, users ports.UserRepository, email string) (string, error) {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}

	base := sanitizeUsername(local)
	if base == "" {
		base = "user"
	}

	candidate := base
	for range 10 {
		taken, err := users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		n, err := rand.Int(rand.Reader, big.NewInt(100000))
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%05d", base, n.Int64())
	}
	// Ten random collisions in a row means something else is wrong.
	return "", errors.New("could not derive a unique username")
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 32 {
		out = out[:32]
	}
	return out
}

// generateResetToken returns 32 random bytes hex-encoded.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// maskEmail redacts most of an address for logs: "al***@example.com".
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	visible := min(at, 2)
	return email[:visible] + "***" + email[at:]
}
