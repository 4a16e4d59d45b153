// Package messaging sends WhatsApp messages through the web client and
// email over SMTP.
package messaging

import (
	"context"
	"fmt"
	log "log/slog"
	"net/url"
	"strings"

	"strom/internal/desktop"
	"strom/internal/nlu"
	"strom/internal/router"
)

const (
	WhatsAppURL  = "https://web.whatsapp.com/send"
	EmailSubject = "Message from Strom"
)

// Mailer sends a plain text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Messenger struct {
	open desktop.Opener
	mail Mailer
}

// New returns a Messenger. mail may be nil when email is not configured.
func New(open desktop.Opener, mail Mailer) *Messenger {
	return &Messenger{open: open, mail: mail}
}

func (m *Messenger) Routes() map[nlu.Intent]router.Handler {
	return map[nlu.Intent]router.Handler{
		nlu.SendWhatsApp: m.SendWhatsApp,
		nlu.SendEmail:    m.SendEmail,
	}
}

func isPhoneNumber(s string) bool {
	s = strings.TrimPrefix(s, "+")
	if len(s) < 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// WhatsAppLink builds a web.whatsapp.com link with the message prefilled.
// Numeric recipients also preselect the chat.
func WhatsAppLink(recipient, message string) string {
	q := url.Values{}
	if isPhoneNumber(recipient) {
		q.Set("phone", strings.TrimPrefix(recipient, "+"))
	}
	q.Set("text", message)
	return WhatsAppURL + "?" + q.Encode()
}

func (m *Messenger) SendWhatsApp(ctx context.Context, req nlu.Result) (string, error) {
	recipient := strings.TrimSpace(req.Entities.String(nlu.KeyRecipient))
	message := strings.TrimSpace(req.Entities.String(nlu.KeyMessage))

	if recipient == "" {
		return "Who should I send to?", nil
	}
	if message == "" {
		return "What's the message?", nil
	}

	if err := m.open.Open(ctx, WhatsAppLink(recipient, message)); err != nil {
		log.Error("Failed to open WhatsApp", "err", err)
		return "Failed to open WhatsApp.", nil
	}
	return fmt.Sprintf("Opening WhatsApp to send to %s.", recipient), nil
}

func (m *Messenger) SendEmail(ctx context.Context, req nlu.Result) (string, error) {
	recipient := strings.TrimSpace(req.Entities.String(nlu.KeyRecipient))
	message := strings.TrimSpace(req.Entities.String(nlu.KeyMessage))

	if recipient == "" {
		return "Who should I email?", nil
	}
	if message == "" {
		return "What's the message?", nil
	}
	if m.mail == nil {
		return "Email not configured.", nil
	}
	if !strings.Contains(recipient, "@") {
		return "Please provide a valid email address.", nil
	}

	if err := m.mail.Send(ctx, recipient, EmailSubject, message); err != nil {
		log.Error("Failed to send email", "to", recipient, "err", err)
		return "Failed to send email.", nil
	}
	return fmt.Sprintf("Email sent to %s.", recipient), nil
}
