package email

import (
	"context"
	"errors"

	"diagnostico_backend/platform/config"
)

// ErrNotConfigured is returned by NoopSender so callers can tell a skipped
// send apart from a delivered one.
var ErrNotConfigured = errors.New("email transport not configured")

// Message is a rendered email ready for delivery.
type Message struct {
	FromName  string
	FromEmail string
	To        string
	Bcc       string
	Subject   string
	HTML      string
	Text      string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NoopSender drops every message.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error {
	return ErrNotConfigured
}

// NewSender picks the transport selected in cfg. It returns NoopSender when
// email is disabled.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}

	switch cfg.GetEmailTransport() {
	case config.TransportBrevoAPI:
		return NewBrevoSender(cfg.GetBrevoAPIKey(), "")
	case config.TransportSMTP:
		return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword())
	default:
		return NoopSender{}
	}
}

// IsConfigured reports whether s actually delivers mail.
func IsConfigured(s Sender) bool {
	if s == nil {
		return false
	}
	_, noop := s.(NoopSender)
	return !noop
}
