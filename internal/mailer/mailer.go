// Package mailer sends transactional mail. Delivery is best-effort from the
// caller's point of view; registration and loan operations never block on it.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/finloop/loan-management/internal/config"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smtpMailer struct {
	cfg config.SMTPConfig
}

// NewSMTP returns a Mailer backed by plain-auth SMTP.
func NewSMTP(cfg config.SMTPConfig) Mailer {
	return &smtpMailer{cfg: cfg}
}

func (m *smtpMailer) Send(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.cfg.From, to, subject, body)

	addr := m.cfg.Host + ":" + m.cfg.Port
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

type logMailer struct {
	logger *zap.Logger
}

// NewLog returns a Mailer that only logs, for development setups without an
// SMTP host configured.
func NewLog(logger *zap.Logger) Mailer {
	return &logMailer{logger: logger}
}

func (m *logMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("mail (not sent, no SMTP host configured)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// FromConfig picks the SMTP mailer when a host is configured and the logging
// fallback otherwise.
func FromConfig(cfg *config.Config, logger *zap.Logger) Mailer {
	if cfg.SMTP.Host == "" {
		return NewLog(logger)
	}
	return NewSMTP(cfg.SMTP)
}
