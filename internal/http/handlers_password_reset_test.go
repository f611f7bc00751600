package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monanga/monanga-business/internal/domain/model"
	apperrors "github.com/monanga/monanga-business/internal/errors"
	"github.com/monanga/monanga-business/internal/service/ratelimit"
)

// mockResetService is a test double for the reset flow.
type mockResetService struct {
	forgotFunc func(ctx context.Context, req *model.ForgotPasswordRequest) error
	resetFunc  func(ctx context.Context, req *model.ResetPasswordRequest) error
	verifyFunc func(ctx context.Context, req *model.VerifyResetTokenRequest) error
}

func (m *mockResetService) ForgotPassword(ctx context.Context, req *model.ForgotPasswordRequest) error {
	if m.forgotFunc != nil {
		return m.forgotFunc(ctx, req)
	}
	return nil
}

func (m *mockResetService) ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error {
	if m.resetFunc != nil {
		return m.resetFunc(ctx, req)
	}
	return nil
}

func (m *mockResetService) VerifyResetToken(ctx context.Context, req *model.VerifyResetTokenRequest) error {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, req)
	}
	return nil
}

func TestPasswordResetHandlers_Forgot_GenericMessage(t *testing.T) {
	for name, svc := range map[string]*mockResetService{
		"known email": {},
		"unknown email": {
			forgotFunc: func(_ context.Context, _ *model.ForgotPasswordRequest) error {
				// The service swallows unknown addresses; mirror that here.
				return nil
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			handlers := &PasswordResetHandlers{Svc: svc}

			req := httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password",
				strings.NewReader(`{"email":"alice@example.com"}`))
			w := httptest.NewRecorder()

			handlers.Forgot(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			body := decodeBody(t, w)
			assert.Contains(t, body["message"], "si un compte existe")
		})
	}
}

func TestPasswordResetHandlers_Forgot_RateLimited(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{})
	policy := ratelimit.Policy{Name: "sensitive", Max: 1, Window: time.Minute}
	handlers := &PasswordResetHandlers{Svc: &mockResetService{}, Limiter: limiter, SensitivePolicy: policy}

	body := `{"email":"alice@example.com"}`
	w := httptest.NewRecorder()
	handlers.Forgot(w, httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handlers.Forgot(w, httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password", strings.NewReader(body)))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestPasswordResetHandlers_Reset(t *testing.T) {
	var got *model.ResetPasswordRequest
	handlers := &PasswordResetHandlers{
		Svc: &mockResetService{
			resetFunc: func(_ context.Context, req *model.ResetPasswordRequest) error {
				got = req
				return nil
			},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/reset-password",
		strings.NewReader(`{"token":"tok-1","email":"alice@example.com","password":"fresh-secret"}`))
	w := httptest.NewRecorder()

	handlers.Reset(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	require.NotNil(t, got)
	assert.Equal(t, "tok-1", got.Token)
}

func TestPasswordResetHandlers_Reset_InvalidToken(t *testing.T) {
	handlers := &PasswordResetHandlers{
		Svc: &mockResetService{
			resetFunc: func(_ context.Context, _ *model.ResetPasswordRequest) error {
				return apperrors.Validation("reset token is invalid or expired")
			},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/reset-password",
		strings.NewReader(`{"token":"stale","email":"alice@example.com","password":"fresh-secret"}`))
	w := httptest.NewRecorder()

	handlers.Reset(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPasswordResetHandlers_VerifyToken(t *testing.T) {
	handlers := &PasswordResetHandlers{Svc: &mockResetService{}}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/verify-reset-token",
		strings.NewReader(`{"token":"tok-1","email":"alice@example.com"}`))
	w := httptest.NewRecorder()

	handlers.VerifyToken(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["valid"])
}

func TestPasswordResetHandlers_VerifyToken_Invalid(t *testing.T) {
	handlers := &PasswordResetHandlers{
		Svc: &mockResetService{
			verifyFunc: func(_ context.Context, _ *model.VerifyResetTokenRequest) error {
				return apperrors.Validation("reset token is invalid or expired")
			},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/verify-reset-token",
		strings.NewReader(`{"token":"stale","email":"alice@example.com"}`))
	w := httptest.NewRecorder()

	handlers.VerifyToken(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
