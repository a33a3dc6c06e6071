package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailRelay is the part of the remote client that relays email.
type EmailRelay interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SheetSender relays messages through the spreadsheet web app.
type SheetSender struct {
	Relay EmailRelay
}

func (s SheetSender) Send(ctx context.Context, msg Message) error {
	if err := s.Relay.SendEmail(ctx, msg.To, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("relaying email to %s: %w", msg.To, err)
	}
	return nil
}

// SendGridSender delivers messages through SendGrid.
type SendGridSender struct {
	client   *sendgrid.Client
	fromName string
	from     string
	sandbox  bool
}

// NewSendGridSender returns a sender using apiKey. In sandbox mode SendGrid
// validates messages without delivering them.
func NewSendGridSender(apiKey, fromName, fromAddress string, sandbox bool) *SendGridSender {
	return &SendGridSender{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		from:     fromAddress,
		sandbox:  sandbox,
	}
}

func (s *SendGridSender) Send(_ context.Context, msg Message) error {
	resp, err := s.client.Send(s.build(msg))
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (s *SendGridSender) build(msg Message) *mail.SGMailV3 {
	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail("", msg.To)
	htmlBody := "<pre>" + html.EscapeString(msg.Body) + "</pre>"
	m := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, htmlBody)
	if s.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		m.MailSettings = ms
	}
	return m
}

// LogSender only logs messages. It is used when no delivery channel is
// configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("notification not delivered, no channel configured",
		"to", msg.To, "subject", msg.Subject, "lines", strings.Count(msg.Body, "\n")+1)
	return nil
}
