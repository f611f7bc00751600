package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration
// in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
	"github.com/monanga/monanga-business/internal/domain/model"
)

// BeginInput carries inputs for initiating an OAuth flow.
type BeginInput struct {
	// State is the anti-CSRF nonce echoed back by the provider.
	State string
	// CodeVerifier is the PKCE verifier; ignored by providers that opt
	// out of PKCE.
	CodeVerifier string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code         string
	CodeVerifier string
}

// OAuthProvider initiates and completes an authentication flow against an IdP.
type OAuthProvider interface {
	// ID returns the provider identifier used in routes and cookie names.
	ID() string

	// UsesPKCE reports whether the provider participates in PKCE.
	UsesPKCE() bool

	// AuthCodeURL builds the provider authorization URL for the flow.
	AuthCodeURL(in BeginInput) string

	// Exchange redeems the authorization code for an access token, fetches
	// the profile, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// UserRepository persists and retrieves user records.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail looks up a user by email, case-insensitively.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	// UsernameExists reports whether a username is already taken.
	UsernameExists(ctx context.Context, username string) (bool, error)
	// DeleteWithSessions removes the user and all of their sessions in
	// one transaction.
	DeleteWithSessions(ctx context.Context, id string) error
	// UpsertOAuthLogin creates-or-refreshes the user keyed by email and
	// inserts the session, in one transaction, so an OAuth login can
	// never leave a user row without its session.
	UpsertOAuthLogin(ctx context.Context, user *model.User, sess domainauth.Session) (*model.User, error)
}

// SessionRepository persists and retrieves sessions.
type SessionRepository interface {
	Create(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
	// DeleteExpired removes sessions past their expiry and reports how many
	// were removed. Validation also drops expired sessions lazily; this is
	// the periodic sweep behind it.
	DeleteExpired(ctx context.Context) (int64, error)
}

// Mailer sends transactional mail.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// TransactionStore mirrors OAuth transaction state outside the cookie.
// Implementations are best-effort: the cookie remains the primary carrier
// and errors from the store never fail the flow.
type TransactionStore interface {
	Save(ctx context.Context, provider string, txn domainauth.Transaction, ttl time.Duration) error
	Get(ctx context.Context, provider, state string) (domainauth.Transaction, error)
	Delete(ctx context.Context, provider, state string) error
}
