package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/monanga/monanga-business/config"
	"github.com/monanga/monanga-business/internal/adapters/mail"
	"github.com/monanga/monanga-business/internal/adapters/oauth"
	redisadapter "github.com/monanga/monanga-business/internal/adapters/redis"
	"github.com/monanga/monanga-business/internal/data"
	"github.com/monanga/monanga-business/internal/ports"
	"github.com/monanga/monanga-business/internal/service"
	"github.com/monanga/monanga-business/internal/service/ratelimit"
)

// ServiceDeps contains dependencies for building the service container.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient goredis.UniversalClient
	Logger      *slog.Logger
}

// ServiceContainer holds the wired application services.
type ServiceContainer struct {
	Sessions *service.SessionService
	Accounts *service.AccountService
	OAuth    *service.OAuthService
	Limiter  *ratelimit.Limiter
}

// NewServices wires repositories, adapters, and services. Every constructor
// error is fatal: the process never runs with a missing dependency.
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return nil, errors.New("config and database are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	userRepo := data.NewUserRepo(deps.DB)
	sessionRepo := data.NewSessionRepo(deps.DB)

	sessions, err := service.NewSessionService(service.SessionServiceOptions{
		Sessions: sessionRepo,
		Users:    userRepo,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create session service: %w", err)
	}

	mailer := buildMailer(cfg, logger)

	accounts, err := service.NewAccountService(service.AccountServiceOptions{
		Users:         userRepo,
		Sessions:      sessions,
		Mailer:        mailer,
		BaseURL:       cfg.BaseURL,
		SessionTTL:    cfg.Auth.Session.TTL,
		ResetTokenTTL: cfg.Auth.ResetTokenTTL,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create account service: %w", err)
	}

	providers, err := buildProviders(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var txnStore ports.TransactionStore
	if deps.RedisClient != nil {
		txnStore = redisadapter.NewTxnStore(deps.RedisClient)
	}

	oauthSvc, err := service.NewOAuthService(service.OAuthServiceOptions{
		Providers:      providers,
		Users:          userRepo,
		Transactions:   txnStore,
		SessionTTL:     cfg.Auth.Session.OAuthTTL,
		TransactionTTL: cfg.Auth.OAuthStateTTL,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create oauth service: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{Capacity: cfg.RateLimit.CacheCapacity})

	return &ServiceContainer{
		Sessions: sessions,
		Accounts: accounts,
		OAuth:    oauthSvc,
		Limiter:  limiter,
	}, nil
}

// buildProviders creates a provider for every configured credential pair.
// At least one provider must be configured.
func buildProviders(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) ([]ports.OAuthProvider, error) {
	var providers []ports.OAuthProvider

	if cfg.Auth.Google.ClientID != "" {
		google, err := oauth.NewGoogle(ctx, oauth.ProviderConfig{
			ClientID:     cfg.Auth.Google.ClientID,
			ClientSecret: cfg.Auth.Google.ClientSecret,
			RedirectURL:  cfg.BaseURL + "/api/oauth/callback/google",
		})
		if err != nil {
			return nil, fmt.Errorf("create google provider: %w", err)
		}
		providers = append(providers, google)
	} else {
		logger.Warn("google oauth not configured")
	}

	if cfg.Auth.Facebook.ClientID != "" {
		facebook, err := oauth.NewFacebook(oauth.ProviderConfig{
			ClientID:     cfg.Auth.Facebook.ClientID,
			ClientSecret: cfg.Auth.Facebook.ClientSecret,
			RedirectURL:  cfg.BaseURL + "/api/oauth/callback/facebook",
		})
		if err != nil {
			return nil, fmt.Errorf("create facebook provider: %w", err)
		}
		providers = append(providers, facebook)
	} else {
		logger.Warn("facebook oauth not configured")
	}

	if len(providers) == 0 {
		return nil, errors.New("no oauth provider configured")
	}
	return providers, nil
}

// buildMailer picks SMTP when configured outside dev mode, otherwise the
// log-only mailer.
//
//nolint:ireturn // the mailer port is the unit of injection here.
func buildMailer(cfg *config.AppConfig, logger *slog.Logger) ports.Mailer {
	if cfg.Mail.Enabled() && !cfg.IsDev {
		mailer, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			User:     cfg.Mail.User,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		if err == nil {
			return mailer
		}
		logger.Warn("smtp mailer misconfigured; falling back to log mailer", "error", err)
	}
	return &mail.LogMailer{Logger: logger}
}
