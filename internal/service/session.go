package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
	"github.com/monanga/monanga-business/internal/domain/model"
	apperrors "github.com/monanga/monanga-business/internal/errors"
	"github.com/monanga/monanga-business/internal/ports"
)

const sessionIDLen = 32

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Sessions ports.SessionRepository
	Users    ports.UserRepository
	Now      func() time.Time // injectable clock for tests
	Logger   *slog.Logger
}

// SessionService is the session authority: it issues, validates, and
// invalidates opaque session identifiers against the durable store.
type SessionService struct {
	sessions ports.SessionRepository
	users    ports.UserRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionService constructs a new SessionService.
func NewSessionService(opts SessionServiceOptions) (*SessionService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("session repository is required")
	}
	if opts.Users == nil {
		return nil, errors.New("user repository is required")
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		sessions: opts.Sessions,
		users:    opts.Users,
		now:      nowFn,
		logger:   logger,
	}, nil
}

// Create issues a new session for the user with the given lifetime.
func (s *SessionService) Create(ctx context.Context, userID string, ttl time.Duration) (domainauth.Session, error) {
	if userID == "" {
		return domainauth.Session{}, errors.New("user id is required")
	}
	if ttl <= 0 {
		return domainauth.Session{}, errors.New("session ttl must be positive")
	}

	id, err := generateSessionID()
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("generate session id: %w", err)
	}

	now := s.now().UTC()
	sess := domainauth.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if saveErr := s.sessions.Create(ctx, sess); saveErr != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", saveErr)
	}
	return sess, nil
}

// ValidationResult carries the outcome of validating a session id. Both
// fields are nil for unknown or expired sessions; validation itself only
// errors on infrastructure failure.
type ValidationResult struct {
	User    *model.User
	Session *domainauth.Session
}

// Validate looks up the session and its owning user. Unknown and expired
// ids resolve to an empty result, never an error; expired sessions are
// deleted as a side effect.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (ValidationResult, error) {
	if sessionID == "" {
		return ValidationResult{}, nil
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return ValidationResult{}, nil
		}
		return ValidationResult{}, fmt.Errorf("get session: %w", err)
	}

	if sess.Expired(s.now()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return ValidationResult{}, fmt.Errorf("delete expired session: %w", deleteErr)
		}
		return ValidationResult{}, nil
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		// A session pointing at a deleted user is treated as unauthenticated.
		if apperrors.IsNotFound(err) {
			return ValidationResult{}, nil
		}
		return ValidationResult{}, fmt.Errorf("get session user: %w", err)
	}

	return ValidationResult{User: user, Session: &sess}, nil
}

// Invalidate removes a session. Unknown ids are a no-op.
func (s *SessionService) Invalidate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// InvalidateUser removes every session belonging to a user. Called before
// account deletion so no previously issued cookie survives the user row.
func (s *SessionService) InvalidateUser(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

// ReapExpired runs one sweep of expired session rows.
func (s *SessionService) ReapExpired(ctx context.Context) (int64, error) {
	removed, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return removed, nil
}

// RunReaper sweeps expired sessions every interval until the context is
// canceled. Sweep failures are logged and the loop keeps going; only
// cancellation stops it.
func (s *SessionService) RunReaper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("reap interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := s.ReapExpired(ctx)
			if err != nil {
				s.logger.WarnContext(ctx, "session reap failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.InfoContext(ctx, "reaped expired sessions", "removed", removed)
			}
		}
	}
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() (string, error) {
	b := make([]byte, sessionIDLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
