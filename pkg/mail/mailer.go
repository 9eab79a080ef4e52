// Package mail sends transactional mail. Only password-reset mail exists
// today; the Mailer interface keeps services testable without SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/wardenhq/warden/pkg/config"
	"github.com/wardenhq/warden/pkg/observability"
)

// Mailer sends a message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg    config.MailConfig
	logger *observability.Logger
}

// NewSMTPMailer creates a mailer from SMTP configuration.
func NewSMTPMailer(cfg config.MailConfig, logger *observability.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Send delivers a plain-text message. The context is consulted before
// dialing; net/smtp itself does not take one.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.Username
	headers := []string{
		fmt.Sprintf("From: %s <%s>", m.cfg.DisplayName, from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + body + "\r\n"

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	m.logger.WithField("to", to).WithField("subject", subject).Debug("mail sent")
	return nil
}

// ResetLink builds the password-reset URL the mail body points at. The path
// shape matches what the frontend routes.
func ResetLink(origin, userID, token string) string {
	return fmt.Sprintf("%s/update-password/%s/%s", strings.TrimRight(origin, "/"), userID, token)
}

// ResetBody renders the password-reset mail body around the link.
func ResetBody(link string) string {
	return "A password reset was requested for your account.\r\n\r\n" +
		"Follow this link to choose a new password:\r\n" + link + "\r\n\r\n" +
		"If you did not request this, you can ignore this message."
}
