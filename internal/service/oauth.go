package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	oauthadapter "github.com/monanga/monanga-business/internal/adapters/oauth"
	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
	"github.com/monanga/monanga-business/internal/domain/model"
	apperrors "github.com/monanga/monanga-business/internal/errors"
	"github.com/monanga/monanga-business/internal/ports"
)

// Sentinel errors distinguishing the callback failure modes, so the handler
// can map each to its redirect code.
var (
	// ErrUnsupportedProvider means the requested provider id is not configured.
	ErrUnsupportedProvider = apperrors.NotFound("oauth provider not supported")
	// ErrStateMismatch means the state echoed by the provider does not match
	// the one stored at flow start, or flow state is missing entirely.
	ErrStateMismatch = apperrors.Unauthorized("oauth state mismatch")
	// ErrExchangeFailed wraps failures talking to the provider during the
	// code/token exchange or profile fetch.
	ErrExchangeFailed = errors.New("oauth exchange failed")
	// ErrEmailMissing means the provider returned a profile without an email
	// address, which this system requires as the account key.
	ErrEmailMissing = oauthadapter.ErrEmailMissing
)

// OAuthServiceOptions groups dependencies for OAuthService.
type OAuthServiceOptions struct {
	Providers []ports.OAuthProvider
	Users     ports.UserRepository
	// Transactions mirrors flow state server-side; optional, best-effort.
	Transactions ports.TransactionStore

	// SessionTTL is the lifetime of OAuth-login sessions.
	SessionTTL time.Duration
	// TransactionTTL bounds how long a started flow stays redeemable.
	TransactionTTL time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// OAuthService runs the authorization-code flow: Begin builds the redirect
// to the provider, Complete redeems the callback into a user and session.
type OAuthService struct {
	providers      map[string]ports.OAuthProvider
	users          ports.UserRepository
	transactions   ports.TransactionStore
	sessionTTL     time.Duration
	transactionTTL time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewOAuthService constructs a new OAuthService.
func NewOAuthService(opts OAuthServiceOptions) (*OAuthService, error) {
	if len(opts.Providers) == 0 {
		return nil, errors.New("at least one oauth provider is required")
	}
	if opts.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 720 * time.Hour
	}
	if opts.TransactionTTL <= 0 {
		opts.TransactionTTL = 15 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	providers := make(map[string]ports.OAuthProvider, len(opts.Providers))
	for _, p := range opts.Providers {
		if _, dup := providers[p.ID()]; dup {
			return nil, fmt.Errorf("duplicate oauth provider %q", p.ID())
		}
		providers[p.ID()] = p
	}
	return &OAuthService{
		providers:      providers,
		users:          opts.Users,
		transactions:   opts.Transactions,
		sessionTTL:     opts.SessionTTL,
		transactionTTL: opts.TransactionTTL,
		logger:         opts.Logger,
		now:            opts.Now,
	}, nil
}

// BeginResult carries the provider redirect URL and the flow state the
// handler must persist in the transaction cookie.
type BeginResult struct {
	AuthURL     string
	Transaction domainauth.Transaction
}

// Begin starts a flow against the named provider. redirectTo is where the
// browser lands after a successful login; it is carried through the flow
// state, never through provider parameters.
func (s *OAuthService) Begin(ctx context.Context, providerID, redirectTo string) (*BeginResult, error) {
	provider, ok := s.providers[providerID]
	if !ok {
		return nil, ErrUnsupportedProvider
	}

	txn := domainauth.Transaction{
		State:      oauth2.GenerateVerifier(),
		RedirectTo: redirectTo,
	}
	if provider.UsesPKCE() {
		txn.CodeVerifier = oauth2.GenerateVerifier()
	}

	if s.transactions != nil {
		if err := s.transactions.Save(ctx, providerID, txn, s.transactionTTL); err != nil {
			s.logger.WarnContext(ctx, "oauth transaction mirror save failed",
				"provider", providerID, "error", err)
		}
	}

	authURL := provider.AuthCodeURL(ports.BeginInput{
		State:        txn.State,
		CodeVerifier: txn.CodeVerifier,
	})
	return &BeginResult{AuthURL: authURL, Transaction: txn}, nil
}

// CompleteInput carries the callback parameters plus the flow state the
// handler recovered from the transaction cookie.
type CompleteInput struct {
	ProviderID string
	Code       string
	State      string
	// Transaction is the flow state from Begin; zero State means the
	// cookie was missing or unreadable.
	Transaction domainauth.Transaction
}

// CompleteResult carries the logged-in user, their session, and where the
// browser should land.
type CompleteResult struct {
	User       *model.User
	Session    domainauth.Session
	RedirectTo string
}

// Complete validates the callback against the stored flow state, exchanges
// the code, and upserts the user with a fresh session in one transaction.
func (s *OAuthService) Complete(ctx context.Context, in CompleteInput) (*CompleteResult, error) {
	provider, ok := s.providers[in.ProviderID]
	if !ok {
		return nil, ErrUnsupportedProvider
	}

	txn := in.Transaction
	if txn.State == "" && s.transactions != nil && in.State != "" {
		// Cookie lost (e.g. cross-site redirect quirks); fall back to the
		// server-side mirror keyed by the echoed state.
		stored, err := s.transactions.Get(ctx, in.ProviderID, in.State)
		if err == nil {
			txn = stored
		}
	}

	if err := s.validateCallback(provider, in, txn); err != nil {
		return nil, err
	}
	if s.transactions != nil {
		if err := s.transactions.Delete(ctx, in.ProviderID, txn.State); err != nil {
			s.logger.WarnContext(ctx, "oauth transaction mirror delete failed",
				"provider", in.ProviderID, "error", err)
		}
	}

	identity, err := provider.Exchange(ctx, ports.ExchangeInput{
		Code:         in.Code,
		CodeVerifier: txn.CodeVerifier,
	})
	if err != nil {
		if errors.Is(err, ErrEmailMissing) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	user, sess, err := s.upsertLogin(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &CompleteResult{User: user, Session: sess, RedirectTo: txn.RedirectTo}, nil
}

func (s *OAuthService) validateCallback(provider ports.OAuthProvider, in CompleteInput, txn domainauth.Transaction) error {
	if in.Code == "" {
		return ErrStateMismatch
	}
	if txn.State == "" || in.State == "" {
		return ErrStateMismatch
	}
	if subtle.ConstantTimeCompare([]byte(txn.State), []byte(in.State)) != 1 {
		return ErrStateMismatch
	}
	if provider.UsesPKCE() && txn.CodeVerifier == "" {
		return ErrStateMismatch
	}
	return nil
}

// upsertLogin maps the provider identity onto a user row and issues the
// session. Existing users keep their password; new rows get none and log in
// through the provider only until they set one via reset.
func (s *OAuthService) upsertLogin(ctx context.Context, identity domainauth.Identity) (*model.User, domainauth.Session, error) {
	email := model.NormalizeEmail(identity.Email)
	if email == "" {
		return nil, domainauth.Session{}, ErrEmailMissing
	}

	username, err := deriveUsername(ctx, s.users, email)
	if err != nil {
		return nil, domainauth.Session{}, fmt.Errorf("derive username: %w", err)
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, domainauth.Session{}, fmt.Errorf("generate session id: %w", err)
	}
	now := s.now().UTC()
	sess := domainauth.Session{
		ID:        sessionID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}

	candidate := &model.User{
		ID:            uuid.NewString(),
		Email:         email,
		FirstName:     strings.TrimSpace(identity.FirstName),
		LastName:      strings.TrimSpace(identity.LastName),
		Username:      username,
		EmailVerified: identity.EmailVerified,
		Role:          domainauth.RoleUser,
	}
	if pic := strings.TrimSpace(identity.Picture); pic != "" {
		candidate.Image = &pic
	}
	user, err := s.users.UpsertOAuthLogin(ctx, candidate, sess)
	if err != nil {
		return nil, domainauth.Session{}, fmt.Errorf("upsert oauth login: %w", err)
	}
	sess.UserID = user.ID
	return user, sess, nil
}
