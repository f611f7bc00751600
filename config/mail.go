package config

// MailConfig contains SMTP configuration for outbound mail
// (password-reset links).
type MailConfig struct {
	Host     string `env:"HOST"     envDefault:""`
	Port     int    `env:"PORT"     envDefault:"587"`
	User     string `env:"USER"     envDefault:""`
	Password string `env:"PASSWORD" envDefault:""`

	// From is the sender address on outgoing messages.
	From string `env:"FROM" envDefault:"no-reply@monangabusiness.com"`
}

// Enabled reports whether an SMTP host was configured. When disabled the
// application falls back to a log-only mailer.
func (c MailConfig) Enabled() bool { return c.Host != "" }
