package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/monanga/monanga-business/internal/service/ratelimit"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Accounts AccountServiceInterface
	Sessions interface {
		SessionValidator
		SessionInvalidator
	}
	OAuth    OAuthServiceInterface
	Reset    PasswordResetServiceInterface
	Limiter  *ratelimit.Limiter
	Cookies  CookieConfig
	StateTTL time.Duration

	// Policies come from config so quotas can be tuned per environment.
	AuthPolicy      ratelimit.Policy
	APIPolicy       ratelimit.Policy
	SensitivePolicy ratelimit.Policy

	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router with its middleware chain.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	accountHandlers := &AccountHandlers{
		Svc:        services.Accounts,
		Sessions:   services.Sessions,
		Cookies:    services.Cookies,
		Limiter:    services.Limiter,
		AuthPolicy: services.AuthPolicy,
		Logger:     logger,
	}
	oauthHandlers := &OAuthHandlers{
		Svc:        services.OAuth,
		Cookies:    services.Cookies,
		StateTTL:   services.StateTTL,
		Limiter:    services.Limiter,
		AuthPolicy: services.AuthPolicy,
		Logger:     logger,
	}
	resetHandlers := &PasswordResetHandlers{
		Svc:             services.Reset,
		Limiter:         services.Limiter,
		SensitivePolicy: services.SensitivePolicy,
	}

	registerAccountRoutes(mux, accountHandlers, services)
	registerOAuthRoutes(mux, oauthHandlers)
	registerResetRoutes(mux, resetHandlers)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	handler = Attach(services.Sessions, services.Cookies.Name)(handler)
	if services.Limiter != nil {
		handler = RateLimit(services.Limiter, services.APIPolicy, IPKey)(handler)
	}
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerAccountRoutes(mux *http.ServeMux, h *AccountHandlers, services RouterServices) {
	requireAuth := RequireAuth(services.Sessions, services.Cookies.Name)

	mux.HandleFunc("POST /api/register", h.Register)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)
	mux.HandleFunc("GET /api/session", h.Session)
	mux.HandleFunc("GET /api/me", h.Session)
	mux.Handle("POST /api/account/change-password", requireAuth(http.HandlerFunc(h.ChangePassword)))
	mux.Handle("DELETE /api/account/delete", requireAuth(http.HandlerFunc(h.DeleteAccount)))
}

func registerOAuthRoutes(mux *http.ServeMux, h *OAuthHandlers) {
	mux.HandleFunc("GET /api/oauth/authorize", h.Authorize)
	mux.HandleFunc("GET /api/oauth/callback/{provider}", h.Callback)
}

func registerResetRoutes(mux *http.ServeMux, h *PasswordResetHandlers) {
	mux.HandleFunc("POST /api/auth/forgot-password", h.Forgot)
	mux.HandleFunc("POST /api/auth/reset-password", h.Reset)
	mux.HandleFunc("POST /api/auth/verify-reset-token", h.VerifyToken)
}
