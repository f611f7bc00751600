package httpx

import (
	"context"
	"net/http"

	"github.com/monanga/monanga-business/internal/domain/model"
	"github.com/monanga/monanga-business/internal/service/ratelimit"
)

// PasswordResetServiceInterface defines the reset-flow operations.
type PasswordResetServiceInterface interface {
	ForgotPassword(ctx context.Context, req *model.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error
	VerifyResetToken(ctx context.Context, req *model.VerifyResetTokenRequest) error
}

// PasswordResetHandlers provides HTTP handlers for the forgot/reset flow.
type PasswordResetHandlers struct {
	Svc     PasswordResetServiceInterface
	Limiter *ratelimit.Limiter
	// SensitivePolicy throttles reset requests per client IP.
	SensitivePolicy ratelimit.Policy
}

func (h *PasswordResetHandlers) checkLimit(w http.ResponseWriter, r *http.Request) bool {
	if h.Limiter == nil {
		return true
	}
	res := h.Limiter.Check(h.SensitivePolicy, clientIP(r))
	if res.Allowed {
		return true
	}
	writeRateLimited(w, res)
	return false
}

// Forgot always answers with the same generic message so callers cannot
// probe which addresses have accounts.
// POST /api/auth/forgot-password.
func (h *PasswordResetHandlers) Forgot(w http.ResponseWriter, r *http.Request) {
	if !h.checkLimit(w, r) {
		return
	}

	var req model.ForgotPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.ForgotPassword(r.Context(), &req); err != nil {
		RenderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"message": "si un compte existe pour cette adresse, un e-mail de réinitialisation a été envoyé",
	})
}

// Reset redeems a token for a new password.
// POST /api/auth/reset-password.
func (h *PasswordResetHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	if !h.checkLimit(w, r) {
		return
	}

	var req model.ResetPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.ResetPassword(r.Context(), &req); err != nil {
		RenderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// VerifyToken checks a token without consuming it.
// POST /api/auth/verify-reset-token.
func (h *PasswordResetHandlers) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyResetTokenRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.VerifyResetToken(r.Context(), &req); err != nil {
		RenderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"valid": true})
}
