package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/monanga/monanga-business/internal/domain/model"
	"github.com/monanga/monanga-business/internal/service"
	"github.com/monanga/monanga-business/internal/service/ratelimit"
)

// AccountServiceInterface defines the account operations the handlers need.
type AccountServiceInterface interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*service.LoginResult, error)
	ChangePassword(ctx context.Context, userID string, req *model.ChangePasswordRequest) error
	DeleteAccount(ctx context.Context, userID string) error
}

// SessionInvalidator removes a server-side session.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, sessionID string) error
}

// AccountHandlers provides HTTP handlers for registration, login, and
// account management.
type AccountHandlers struct {
	Svc      AccountServiceInterface
	Sessions SessionInvalidator
	Cookies  CookieConfig
	Limiter  *ratelimit.Limiter
	// AuthPolicy throttles credential endpoints, keyed by email when the
	// body carries one so an attacker rotating IPs still hits the wall.
	AuthPolicy ratelimit.Policy
	Logger     *slog.Logger
}

func (h *AccountHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// checkAuthLimit applies the auth policy keyed by email, falling back to the
// client IP. Returns false with the response already written when denied.
func (h *AccountHandlers) checkAuthLimit(w http.ResponseWriter, r *http.Request, email string) bool {
	if h.Limiter == nil {
		return true
	}
	key := model.NormalizeEmail(email)
	if key == "" {
		key = clientIP(r)
	}
	res := h.Limiter.Check(h.AuthPolicy, key)
	if res.Allowed {
		return true
	}
	writeRateLimited(w, res)
	return false
}

// Register handles account creation.
// POST /api/register.
func (h *AccountHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !h.checkAuthLimit(w, r, req.Email) {
		return
	}

	user, err := h.Svc.Register(r.Context(), &req)
	if err != nil {
		RenderError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "compte créé avec succès",
		"user":    user.Sanitized(),
	})
}

// Login handles password login.
// POST /api/login.
func (h *AccountHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !h.checkAuthLimit(w, r, req.Username) {
		return
	}

	result, err := h.Svc.Login(r.Context(), &req)
	if err != nil {
		RenderError(w, err)
		return
	}

	h.Cookies.setSessionCookie(w, r, result.Session)
	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    result.User.Sanitized(),
	})
}

// Logout invalidates the current session and clears the cookie.
// POST /api/logout.
func (h *AccountHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.Cookies.Name)
	if err != nil || cookie.Value == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "no_active_session",
			Err:     errors.New("no active session"),
		})
		return
	}

	if err := h.Sessions.Invalidate(r.Context(), cookie.Value); err != nil {
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
	}
	h.Cookies.clearCookie(w, r, h.Cookies.Name, "/")
	WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Session reports the current authentication state. A missing or dead
// session is a normal 200 answer, never an error.
// GET /api/session.
func (h *AccountHandlers) Session(w http.ResponseWriter, r *http.Request) {
	info, ok := AuthFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]any{
			"user":          nil,
			"authenticated": false,
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"user":          info.User.Sanitized(),
		"authenticated": true,
	})
}

// ChangePassword updates the password of the authenticated user.
// POST /api/account/change-password.
func (h *AccountHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	info, ok := AuthFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	var req model.ChangePasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.ChangePassword(r.Context(), info.User.ID, &req); err != nil {
		RenderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// DeleteAccount removes the authenticated user's account and clears their
// session cookie.
// DELETE /api/account/delete.
func (h *AccountHandlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	info, ok := AuthFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	if err := h.Svc.DeleteAccount(r.Context(), info.User.ID); err != nil {
		RenderError(w, err)
		return
	}
	h.Cookies.clearCookie(w, r, h.Cookies.Name, "/")
	WriteJSON(w, http.StatusOK, map[string]any{
		"message": "compte supprimé",
		"success": true,
	})
}

func writeRateLimited(w http.ResponseWriter, res ratelimit.Result) {
	secs := int(res.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	WriteError(w, ErrorParams{
		Code:    http.StatusTooManyRequests,
		ErrCode: "rate_limited",
		Err:     errors.New("too many requests, slow down"),
	})
}
