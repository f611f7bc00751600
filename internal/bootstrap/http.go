package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/monanga/monanga-business/config"
	httpx "github.com/monanga/monanga-business/internal/http"
	"github.com/monanga/monanga-business/internal/service/ratelimit"
)

func ratePolicy(name string, max int, window time.Duration) ratelimit.Policy {
	return ratelimit.Policy{Name: name, Max: max, Window: window}
}

// NewServer builds the HTTP server with its full middleware chain.
func NewServer(cfg *config.AppConfig, services *ServiceContainer, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}

	rl := cfg.RateLimit
	handler := httpx.NewRouter(httpx.RouterServices{
		Accounts: services.Accounts,
		Sessions: services.Sessions,
		OAuth:    services.OAuth,
		Reset:    services.Accounts,
		Limiter:  services.Limiter,
		Cookies: httpx.CookieConfig{
			Name:   cfg.Auth.Session.CookieName,
			Domain: cfg.Auth.Session.CookieDomain,
			Secure: !cfg.IsDev,
		},
		StateTTL:        cfg.Auth.OAuthStateTTL,
		AuthPolicy:      ratePolicy("auth", rl.AuthMax, rl.AuthWindow),
		APIPolicy:       ratePolicy("api", rl.APIMax, rl.APIWindow),
		SensitivePolicy: ratePolicy("sensitive", rl.SensitiveMax, rl.SensitiveWindow),
		Logger:          logger,
	})

	return &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
}

// Run serves until the context is canceled or SIGINT/SIGTERM arrives, then
// shuts the server down gracefully within the configured timeout. The
// session reaper runs alongside the server and stops with it.
func Run(ctx context.Context, cfg *config.AppConfig, server *http.Server, services *ServiceContainer, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return services.Sessions.RunReaper(ctx, cfg.Auth.Session.ReapInterval)
	})

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
