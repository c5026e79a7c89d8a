package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// PreviewSender writes each message as an .html file plus a .json envelope.
type PreviewSender struct {
	dir string
	now func() time.Time
}

func NewPreviewSender(dir string) *PreviewSender {
	return &PreviewSender{dir: dir, now: time.Now}
}

func (d *PreviewSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create preview dir: %v", ErrFailedToSendEmail, err)
	}

	now := d.now()
	name := msg.Tag
	if name == "" {
		name = msg.Subject
	}
	base := filepath.Join(d.dir, now.Format("2006_01_02_150405")+"_"+sanitizeFilename(name))

	if err := os.WriteFile(base+".html", []byte(msg.HTMLBody), 0o644); err != nil {
		return fmt.Errorf("%w: write html: %v", ErrFailedToSendEmail, err)
	}

	envelope, err := json.MarshalIndent(struct {
		Message
		SentAt string `json:"sent_at"`
	}{msg, now.Format(time.RFC3339)}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode envelope: %v", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(base+".json", envelope, 0o644); err != nil {
		return fmt.Errorf("%w: write envelope: %v", ErrFailedToSendEmail, err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = unsafeFilenameChars.ReplaceAllString(strings.ReplaceAll(s, " ", "_"), "")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		return "email"
	}
	return strings.ToLower(s)
}
