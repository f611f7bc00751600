package config

import "time"

// SessionConfig controls cookie and server-side session behavior.
type SessionConfig struct {
	// CookieName is the session cookie name.
	CookieName string `env:"COOKIE_NAME" envDefault:"monanga_session"`

	// CookieDomain restricts the session cookie to a domain. Empty means
	// host-only cookies.
	CookieDomain string `env:"COOKIE_DOMAIN" envDefault:""`

	// TTL is the lifetime of sessions created from a password login.
	TTL time.Duration `env:"TTL" envDefault:"168h"` // one week

	// OAuthTTL is the lifetime of sessions created from an OAuth login.
	// Kept distinct from TTL on purpose: OAuth logins are considered
	// lower-friction to renew and historically carried a longer grant.
	OAuthTTL time.Duration `env:"OAUTH_TTL" envDefault:"720h"` // 30 days

	// ReapInterval is how often expired session rows are swept from the
	// store. Validation already drops expired sessions lazily; the sweep
	// keeps abandoned rows from piling up.
	ReapInterval time.Duration `env:"REAP_INTERVAL" envDefault:"1h"`
}

// OAuthProviderConfig holds the client credentials for one identity provider.
type OAuthProviderConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	Session SessionConfig `envPrefix:"SESSION_"`

	// Google uses OIDC discovery and PKCE.
	Google OAuthProviderConfig `envPrefix:"GOOGLE_"`

	// Facebook uses static endpoints and no PKCE (its token endpoint
	// rejects the verifier parameter).
	Facebook OAuthProviderConfig `envPrefix:"FACEBOOK_"`

	// ResetTokenTTL is the lifetime of password-reset tokens.
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`

	// OAuthStateTTL is the lifetime of the OAuth transaction cookie.
	OAuthStateTTL time.Duration `env:"OAUTH_STATE_TTL" envDefault:"15m"`
}

// Sanitize applies guardrails to auth configuration.
func (c *AuthConfig) Sanitize() {
	if c.Session.CookieName == "" {
		c.Session.CookieName = "monanga_session"
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 168 * time.Hour
	}
	if c.Session.OAuthTTL <= 0 {
		c.Session.OAuthTTL = 720 * time.Hour
	}
	if c.Session.ReapInterval <= 0 {
		c.Session.ReapInterval = time.Hour
	}
	if c.ResetTokenTTL <= 0 {
		c.ResetTokenTTL = time.Hour
	}
	if c.OAuthStateTTL <= 0 {
		c.OAuthStateTTL = 15 * time.Minute
	}
}
