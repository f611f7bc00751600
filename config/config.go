package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Session and OAuth provider configuration
//   - database.go: Database and cache configuration
//   - http.go: HTTP server configuration
//   - mail.go: SMTP configuration
type AppConfig struct {
	// IsDev controls development mode behavior (insecure cookies,
	// verbose error responses, log-only mailer).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// BaseURL is the externally visible application URL. OAuth redirect
	// URIs and password-reset links are built from it.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// Authentication configuration
	Auth AuthConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Outbound mail configuration
	Mail MailConfig `envPrefix:"SMTP_"`

	// Rate limit configuration
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Auth.Sanitize()
	c.RateLimit.Sanitize()

	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
