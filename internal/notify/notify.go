// Package notify delivers best-effort email notifications off the request
// path. Delivery failures are logged and kept as warnings; they never reach
// the operation that queued the message.
package notify

import (
	"context"
	"strings"

	"github.com/erazemk/cautela/internal/model"
)

// Message is one plain text notification.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// AddressFor derives the mailbox of a service member from their BM: the BM
// digits at domain. It returns "" when the BM has no digits or no domain is
// configured.
func AddressFor(bm, domain string) string {
	digits := model.BMDigits(bm)
	domain = strings.TrimPrefix(strings.TrimSpace(domain), "@")
	if digits == "" || domain == "" {
		return ""
	}
	return digits + "@" + domain
}
