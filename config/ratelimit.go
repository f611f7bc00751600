package config

import "time"

// RateLimitConfig contains rate limiter configuration. Limits are enforced
// per process instance; in a multi-instance deployment each instance keeps
// its own counters.
type RateLimitConfig struct {
	// AuthMax is the per-window quota for auth endpoints, keyed by email
	// when derivable from the request, otherwise by client IP.
	AuthMax    int           `env:"AUTH_MAX"    envDefault:"10"`
	AuthWindow time.Duration `env:"AUTH_WINDOW" envDefault:"1m"`

	// APIMax is the per-window quota for general API traffic, keyed by IP.
	APIMax    int           `env:"API_MAX"    envDefault:"100"`
	APIWindow time.Duration `env:"API_WINDOW" envDefault:"1m"`

	// SensitiveMax is the per-window quota for sensitive actions
	// (password reset requests, account deletion), keyed by IP.
	SensitiveMax    int           `env:"SENSITIVE_MAX"    envDefault:"3"`
	SensitiveWindow time.Duration `env:"SENSITIVE_WINDOW" envDefault:"1h"`

	// CacheCapacity caps the number of tracked keys.
	CacheCapacity int `env:"CACHE_CAPACITY" envDefault:"8192"`
}

// Sanitize applies guardrails to rate limit configuration.
func (c *RateLimitConfig) Sanitize() {
	if c.AuthMax <= 0 {
		c.AuthMax = 10
	}
	if c.AuthWindow <= 0 {
		c.AuthWindow = time.Minute
	}
	if c.APIMax <= 0 {
		c.APIMax = 100
	}
	if c.APIWindow <= 0 {
		c.APIWindow = time.Minute
	}
	if c.SensitiveMax <= 0 {
		c.SensitiveMax = 3
	}
	if c.SensitiveWindow <= 0 {
		c.SensitiveWindow = time.Hour
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = 8192
	}
}
