package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/monanga/monanga-business/internal/service"
	"github.com/monanga/monanga-business/internal/service/ratelimit"
)

// SessionValidator resolves a session cookie value into a user and session.
type SessionValidator interface {
	Validate(ctx context.Context, sessionID string) (service.ValidationResult, error)
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Attach returns a middleware that resolves the session cookie and, when
// valid, stores the user and session in the request context. Unauthenticated
// requests continue without auth info.
func Attach(sessions SessionValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if info := resolveAuth(r, sessions, cookieName); info != nil {
				r = r.WithContext(SetAuthInContext(r.Context(), info))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns a middleware that requires authentication.
// If the user is not authenticated, it returns a 401 Unauthorized response.
func RequireAuth(sessions SessionValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := AuthFromContext(r.Context())
			if !ok {
				info = resolveAuth(r, sessions, cookieName)
			}
			if info == nil {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(SetAuthInContext(r.Context(), info)))
		})
	}
}

func resolveAuth(r *http.Request, sessions SessionValidator, cookieName string) *AuthInfo {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	result, err := sessions.Validate(r.Context(), cookie.Value)
	if err != nil || result.User == nil {
		return nil
	}
	return &AuthInfo{User: result.User, Session: result.Session}
}

// KeyFunc derives the rate-limit key for a request.
type KeyFunc func(r *http.Request) string

// IPKey keys requests by client IP.
func IPKey(r *http.Request) string { return clientIP(r) }

// RateLimit returns a middleware that applies the policy keyed by keyFn.
// Denied requests get a 429 with a Retry-After header in seconds.
func RateLimit(limiter *ratelimit.Limiter, policy ratelimit.Policy, keyFn KeyFunc) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = IPKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Check(policy, keyFn(r))
			if !res.Allowed {
				writeRateLimited(w, res)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the originating client address, honoring the first entry
// of X-Forwarded-For when a proxy added one.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
