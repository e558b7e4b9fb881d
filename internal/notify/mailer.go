// Package notify delivers transactional email: verification codes at
// registration and tickets after a reservation is created.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// ErrDisabled is returned by NopMailer; callers treat it like any other
// delivery failure.
var ErrDisabled = errors.New("notify: mail delivery is not configured")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NopMailer is used when SMTP is not configured.
type NopMailer struct{}

func (NopMailer) Send(context.Context, Message) error { return ErrDisabled }

// LogMailer writes messages to the log instead of sending them, so
// verification codes are usable in development without a relay.  It
// still reports ErrDisabled.
type LogMailer struct {
	Log *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, msg Message) error {
	m.Log.InfoContext(ctx, "mail not sent", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return ErrDisabled
}

// SMTPMailer sends through an SMTP relay with optional PLAIN auth.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer returns a mailer bound to host:port.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		Host: host, Port: port, Username: username, Password: password, From: from,
		Timeout: 10 * time.Second,
		send:    smtp.SendMail,
	}
}

// Send writes msg with CRLF line endings.  net/smtp has no context
// support, so ctx only bounds the wait.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("notify: header injection in recipient or subject")
	}
	addr := net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	raw := buildMessage(m.From, msg, time.Now())

	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.send(addr, auth, m.From, []string{msg.To}, raw) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from string, msg Message, at time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("Date: " + at.UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}
