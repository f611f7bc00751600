package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
	"github.com/monanga/monanga-business/internal/service"
	"github.com/monanga/monanga-business/internal/service/ratelimit"
)

// Error codes carried back to the login page as a query parameter. The
// frontend translates them into user-facing messages.
const (
	oauthErrProviderNotSupported = "OAuthProviderNotSupported"
	oauthErrStateMismatch        = "OAuthStateMismatch"
	oauthErrCallback             = "OAuthCallbackError"
	oauthErrGeneric              = "OAuthError"
)

// OAuthServiceInterface defines the flow operations the handlers need.
type OAuthServiceInterface interface {
	Begin(ctx context.Context, providerID, redirectTo string) (*service.BeginResult, error)
	Complete(ctx context.Context, in service.CompleteInput) (*service.CompleteResult, error)
}

// OAuthHandlers provides HTTP handlers for the OAuth authorization-code flow.
type OAuthHandlers struct {
	Svc     OAuthServiceInterface
	Cookies CookieConfig
	// StateTTL bounds the transaction cookies.
	StateTTL time.Duration
	Limiter  *ratelimit.Limiter
	// AuthPolicy throttles flow initiation per client IP.
	AuthPolicy ratelimit.Policy
	// LoginPath is where failed callbacks land, with an error query code.
	LoginPath string
	Logger    *slog.Logger
}

func (h *OAuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *OAuthHandlers) loginPath() string {
	if h.LoginPath != "" {
		return h.LoginPath
	}
	return "/login"
}

// Authorize starts the flow and redirects the browser to the provider.
// GET /api/oauth/authorize?provider=P&redirect_to=R.
func (h *OAuthHandlers) Authorize(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil {
		if res := h.Limiter.Check(h.AuthPolicy, clientIP(r)); !res.Allowed {
			writeRateLimited(w, res)
			return
		}
	}

	providerID := r.URL.Query().Get("provider")
	redirectTo := safeRedirectPath(r.URL.Query().Get("redirect_to"))

	result, err := h.Svc.Begin(r.Context(), providerID, redirectTo)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedProvider) {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "unsupported_provider",
				Err:     errors.New("unsupported oauth provider"),
			})
			return
		}
		RenderError(w, err)
		return
	}

	h.setTxnCookies(w, r, providerID, result.Transaction)
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback finishes the flow. Success redirects to the destination captured
// at flow start; every failure redirects to the login page with an error
// code, and the transaction cookies are cleared either way.
// GET /api/oauth/callback/{provider}?code&state.
func (h *OAuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("provider")
	query := r.URL.Query()

	txn := h.readTxnCookies(r, providerID)
	h.clearTxnCookies(w, r, providerID)

	if denied := query.Get("error"); denied != "" {
		// User declined at the provider, or the provider rejected the
		// request outright.
		h.logger().WarnContext(r.Context(), "oauth provider returned error",
			"provider", providerID, "code", denied)
		h.redirectLoginError(w, r, oauthErrGeneric)
		return
	}

	result, err := h.Svc.Complete(r.Context(), service.CompleteInput{
		ProviderID:  providerID,
		Code:        query.Get("code"),
		State:       query.Get("state"),
		Transaction: txn,
	})
	if err != nil {
		h.logger().WarnContext(r.Context(), "oauth callback failed",
			"provider", providerID, "error", err)
		h.redirectLoginError(w, r, callbackErrorCode(err))
		return
	}

	h.Cookies.setSessionCookie(w, r, result.Session)
	http.Redirect(w, r, safeRedirectPath(result.RedirectTo), http.StatusFound)
}

func callbackErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrUnsupportedProvider):
		return oauthErrProviderNotSupported
	case errors.Is(err, service.ErrStateMismatch):
		return oauthErrStateMismatch
	case errors.Is(err, service.ErrExchangeFailed):
		return oauthErrCallback
	default:
		return oauthErrGeneric
	}
}

func (h *OAuthHandlers) redirectLoginError(w http.ResponseWriter, r *http.Request, code string) {
	u := url.URL{Path: h.loginPath()}
	q := url.Values{}
	q.Set("error", code)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// setTxnCookies stores the flow state in a JSON cookie scoped to the
// callback path, plus the legacy cookies older frontends still read.
func (h *OAuthHandlers) setTxnCookies(w http.ResponseWriter, r *http.Request, providerID string, txn domainauth.Transaction) {
	ttl := h.StateTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	payload, err := json.Marshal(txn)
	if err != nil {
		// Transaction is plain strings; this cannot realistically fail.
		h.logger().ErrorContext(r.Context(), "marshal oauth transaction", "error", err)
		return
	}
	h.Cookies.setTxnCookie(w, r, oauthStateCookieName(providerID), url.QueryEscape(string(payload)), oauthCallbackPath, ttl)
	if txn.CodeVerifier != "" {
		h.Cookies.setTxnCookie(w, r, legacyVerifierCookie, txn.CodeVerifier, oauthCallbackPath, ttl)
	}
	if txn.RedirectTo != "" {
		// Older frontends read this one at the site root.
		h.Cookies.setTxnCookie(w, r, legacyRedirectCookie, url.QueryEscape(txn.RedirectTo), "/", ttl)
	}
}

// readTxnCookies recovers the flow state. The JSON cookie is authoritative;
// a bare-string cookie value (flows started by an older build) is treated as
// the state alone, with verifier and redirect from the legacy cookies.
func (h *OAuthHandlers) readTxnCookies(r *http.Request, providerID string) domainauth.Transaction {
	var txn domainauth.Transaction

	cookie, err := r.Cookie(oauthStateCookieName(providerID))
	if err != nil || cookie.Value == "" {
		return txn
	}
	raw := cookie.Value
	if unescaped, uerr := url.QueryUnescape(raw); uerr == nil {
		raw = unescaped
	}

	if strings.HasPrefix(raw, "{") && json.Unmarshal([]byte(raw), &txn) == nil && txn.State != "" {
		return txn
	}

	txn = domainauth.Transaction{State: raw}
	if c, cerr := r.Cookie(legacyVerifierCookie); cerr == nil {
		txn.CodeVerifier = c.Value
	}
	if c, cerr := r.Cookie(legacyRedirectCookie); cerr == nil {
		if dest, derr := url.QueryUnescape(c.Value); derr == nil {
			txn.RedirectTo = dest
		}
	}
	return txn
}

func (h *OAuthHandlers) clearTxnCookies(w http.ResponseWriter, r *http.Request, providerID string) {
	h.Cookies.clearCookie(w, r, oauthStateCookieName(providerID), oauthCallbackPath)
	h.Cookies.clearCookie(w, r, legacyVerifierCookie, oauthCallbackPath)
	h.Cookies.clearCookie(w, r, legacyRedirectCookie, "/")
}

// maxRedirectPathLen bounds the redirect destination carried through the
// flow cookie; anything longer is treated as invalid.
const maxRedirectPathLen = 512

// safeRedirectPath ensures the provided redirect is a same-origin relative
// path starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" || len(candidate) > maxRedirectPathLen {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
