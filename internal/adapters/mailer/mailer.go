// Package mailer sends plain-text alert mail over SMTP with STARTTLS
// negotiation handled by the transport.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gr-satt/bordem/internal/ports"
)

// Config holds configuration for the SMTP mailer.
type Config struct {
	Host     string // SMTP server host, e.g. smtp.gmail.com
	Port     int    // SMTP server port, e.g. 587
	Username string
	Password string
	From     string
	To       []string
	Logger   ports.Logger
}

// Mailer implements ports.Mailer over net/smtp.
type Mailer struct {
	addr   string
	auth   smtp.Auth
	from   string
	to     []string
	logger ports.Logger

	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a new SMTP mailer.
func New(cfg Config) (*Mailer, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("%w: smtp host and port are required", ports.ErrConfiguration)
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("%w: mail sender and recipients are required", ports.ErrConfiguration)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for mailer", ports.ErrConfiguration)
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Mailer{
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:   auth,
		from:   cfg.From,
		to:     cfg.To,
		logger: cfg.Logger,
		send:   smtp.SendMail,
	}, nil
}

// Send delivers one plain-text message to the configured recipients.
func (m *Mailer) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := assemble(m.from, m.to, subject, body)
	if err := m.send(m.addr, m.auth, m.from, m.to, msg); err != nil {
		m.logger.Error(ctx, err, "Failed to send alert mail", map[string]interface{}{
			"subject": subject, "recipients": len(m.to),
		})
		return fmt.Errorf("%w: sending mail: %v", ports.ErrTransmission, err)
	}
	m.logger.Info(ctx, "Alert mail sent", map[string]interface{}{
		"subject": subject, "recipients": len(m.to),
	})
	return nil
}

// assemble builds an RFC 5322 style message with CRLF line endings.
func assemble(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
