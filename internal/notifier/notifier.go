// Package notifier delivers check-in confirmation emails through SendGrid.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Confirmation identifies the attendee and event a confirmation is about.
type Confirmation struct {
	Email string
	Name  string
	Event string
}

// Notifier sends confirmation emails.
type Notifier interface {
	SendConfirmation(ctx context.Context, c Confirmation) error
}

// ErrNotConfigured is returned when no email API key is set.
var ErrNotConfigured = errors.New("email api not configured")

// Config for the SendGrid mail API.
type Config struct {
	APIURL      string
	APIKey      string
	FromAddress string
	FromName    string
	Locale      string
}

// sendTimeout bounds one mail/send call.
const sendTimeout = 15 * time.Second

// HTTPNotifier sends confirmations through the SendGrid v3 mail/send API.
type HTTPNotifier struct {
	cfg       Config
	templates *Templates
	logger    *zap.Logger
}

// New creates a SendGrid notifier. An empty cfg.APIURL keeps the client's default endpoint.
func New(cfg Config, logger *zap.Logger) (*HTTPNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tpl, err := NewTemplates(cfg.Locale)
	if err != nil {
		return nil, err
	}
	return &HTTPNotifier{cfg: cfg, templates: tpl, logger: logger}, nil
}

// SendConfirmation renders and sends one confirmation email.
func (n *HTTPNotifier) SendConfirmation(ctx context.Context, c Confirmation) error {
	if n.cfg.APIKey == "" {
		return ErrNotConfigured
	}
	subject, body, err := n.templates.Confirmation(c.Name, c.Event)
	if err != nil {
		return err
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(n.cfg.FromName, n.cfg.FromAddress))
	m.Subject = subject
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(c.Name, c.Email))
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", body))

	// The client keeps the request body on itself, so each send gets its own.
	client := sendgrid.NewSendClient(n.cfg.APIKey)
	if n.cfg.APIURL != "" {
		client.BaseURL = n.cfg.APIURL
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	resp, err := client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		msg := strings.TrimSpace(resp.Body)
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return fmt.Errorf("send mail: status %d: %s", resp.StatusCode, msg)
	}
	n.logger.Debug("confirmation sent", zap.String("email", c.Email), zap.String("event", c.Event))
	return nil
}
