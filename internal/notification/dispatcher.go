// Package notification sends the submitter a confirmation email whose
// content depends on the qualification verdict. Delivery is best-effort.
package notification

import (
	"context"
	"fmt"
	"strings"

	"diagnostico_backend/internal/email"
	"diagnostico_backend/internal/scoring"
	"diagnostico_backend/platform/config"
	"diagnostico_backend/platform/logger"
)

// Config combines the settings the dispatcher reads.
type Config interface {
	config.EmailConfig
	config.NotificationConfig
}

// Recipient is the person the confirmation goes to.
type Recipient struct {
	Name  string
	Email string
}

// Dispatcher renders and sends confirmation emails.
type Dispatcher struct {
	sender    email.Sender
	fromName  string
	fromEmail string
	bcc       string
	videoURL  string
	siteURL   string
	baseURL   string
	log       *logger.Logger
}

// NewDispatcher creates a dispatcher. A nil sender disables delivery.
func NewDispatcher(sender email.Sender, cfg Config, log *logger.Logger) *Dispatcher {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Dispatcher{
		sender:    sender,
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		bcc:       cfg.GetEmailBCC(),
		videoURL:  cfg.GetVideoURL(),
		siteURL:   cfg.GetSiteURL(),
		baseURL:   cfg.GetPublicBaseURL(),
		log:       log,
	}
}

// Enabled reports whether a transport is configured.
func (d *Dispatcher) Enabled() bool {
	return email.IsConfigured(d.sender)
}

// Dispatch sends the confirmation for verdict. origin is the public origin
// the form was served from and is used for asset links; empty falls back to
// the configured base URL. Without a transport it logs a warning and
// returns nil.
func (d *Dispatcher) Dispatch(ctx context.Context, to Recipient, verdict scoring.Verdict, origin string) error {
	if !d.Enabled() {
		d.log.WithContext(ctx).Warn("email transport not configured, skipping confirmation",
			"qualifies", verdict.Qualifies)
		return nil
	}

	content, err := d.Render(to, verdict, origin)
	if err != nil {
		return err
	}

	err = d.sender.Send(ctx, email.Message{
		FromName:  d.fromName,
		FromEmail: d.fromEmail,
		To:        to.Email,
		Bcc:       d.bcc,
		Subject:   content.Subject,
		HTML:      content.HTML,
		Text:      content.Text,
	})
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}

	d.log.WithContext(ctx).Info("confirmation email sent", "qualifies", verdict.Qualifies)
	return nil
}

// Render builds the email for verdict without sending it.
func (d *Dispatcher) Render(to Recipient, verdict scoring.Verdict, origin string) (Content, error) {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		origin = d.baseURL
	}

	name := strings.TrimSpace(to.Name)
	if name == "" {
		name = to.Email
	}

	return render(verdict.Qualifies, resultEmailData{
		Name:         name,
		VideoURL:     d.videoURL,
		SiteURL:      d.siteURL,
		ThumbnailURL: origin + "/video.png",
	})
}
