// Package mail sends account notifications.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	From   string
	dialer *gomail.Dialer
}

// NewSMTPSender returns a sender for the given relay.
func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		From:   from,
		dialer: gomail.NewDialer(host, port, user, password),
	}
}

// Send dials the relay and sends one message.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogSender struct{}

// Send logs the message.
func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("mail not sent, no smtp relay configured",
		"to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}

// PasswordReset builds the message carrying a reset code.
func PasswordReset(to, baseURL, code string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "A password reset was requested for %s.\n\n", to)
	fmt.Fprintf(&b, "Reset code: %s\n\n", code)
	fmt.Fprintf(&b, "Send it with your new password to %s/resets/\n", strings.TrimSuffix(baseURL, "/"))
	b.WriteString("If you did not ask for this, ignore this message.\n")

	return Message{
		To:      to,
		Subject: "Password reset",
		Body:    b.String(),
	}
}
