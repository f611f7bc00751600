package mail

// Package mail provides outbound mail adapters. Production uses the SMTP
// mailer; development and tests use the log-only mailer.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPConfig holds configuration for the SMTP mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer sends transactional mail over SMTP with PLAIN auth.
type SMTPMailer struct {
	cfg  SMTPConfig
	addr string
	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a new SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		send: smtp.SendMail,
	}, nil
}

// SendPasswordReset emails a password-reset link.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildResetMessage(m.cfg.From, to, resetURL)

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	if err := m.send(m.addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func buildResetMessage(from, to, resetURL string) []byte {
	var b strings.Builder
	b.WriteString("From: Monanga Business <" + from + ">\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Reinitialisation de votre mot de passe\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("Bonjour,\r\n\r\n")
	b.WriteString("Vous avez demande la reinitialisation de votre mot de passe Monanga Business.\r\n")
	b.WriteString("Cliquez sur le lien suivant pour choisir un nouveau mot de passe :\r\n\r\n")
	b.WriteString(resetURL + "\r\n\r\n")
	b.WriteString("Ce lien expire dans une heure. Si vous n'etes pas a l'origine de cette demande, ignorez ce message.\r\n")
	return []byte(b.String())
}

// LogMailer logs reset links instead of sending them. Used in development
// and whenever SMTP is not configured.
type LogMailer struct {
	Logger *slog.Logger
}

// SendPasswordReset logs the reset link.
func (m *LogMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "password reset link (mail disabled)", "to", to, "url", resetURL)
	return nil
}
