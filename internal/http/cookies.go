package httpx

import (
	"net/http"
	"strings"
	"time"

	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
)

// Legacy cookie names retained for flows started before the JSON transaction
// cookie existed. The callback falls back to them when the JSON cookie is
// missing. The redirect cookie lives at the site root because older
// frontends read it there.
const (
	legacyVerifierCookie = "code_verifier"
	legacyRedirectCookie = "oauth_redirect_uri"
)

// oauthCallbackPath scopes transaction cookies to the callback route only.
const oauthCallbackPath = "/api/oauth/callback"

// CookieConfig carries the attributes shared by every cookie the app sets.
type CookieConfig struct {
	// Name is the session cookie name.
	Name string
	// Domain restricts cookies to a domain; empty means host-only.
	Domain string
	// Secure forces the Secure attribute even on plain HTTP requests.
	// Left false outside production so local development over HTTP works;
	// TLS-terminated requests are detected per request regardless.
	Secure bool
}

func (c CookieConfig) isSecure(r *http.Request) bool {
	if c.Secure {
		return true
	}
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// oauthStateCookieName builds the per-provider transaction cookie name.
func oauthStateCookieName(provider string) string {
	return "oauth_" + provider + "_state"
}

// setSessionCookie writes the session cookie based on the session's expiry.
func (c CookieConfig) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    s.ID,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// clearCookie expires a cookie immediately. It mirrors the attributes used
// when setting cookies so deletion works across browsers.
func (c CookieConfig) clearCookie(w http.ResponseWriter, r *http.Request, name, path string) {
	if path == "" {
		path = "/"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.isSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// setTxnCookie writes a transaction-scoped cookie at the given path.
func (c CookieConfig) setTxnCookie(w http.ResponseWriter, r *http.Request, name, value, path string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}
