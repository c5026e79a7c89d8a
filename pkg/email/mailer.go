// Package email sends transactional emails through Postmark, or writes them
// to disk for local preview.
package email

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"-"`
	Tag      string `json:"tag,omitempty"`
}

// Validate checks the recipient address, subject and body.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidMessage, m.To, err)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.HTMLBody) == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// New picks Postmark when a server token is configured and the preview
// writer otherwise.
func New(cfg Config) (Sender, error) {
	if cfg.UsePostmark() {
		return NewPostmarkSender(cfg)
	}
	return NewPreviewSender(cfg.PreviewDir), nil
}
