package mail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileSender writes each message to <dir>/<subject>.html instead of sending it.
type FileSender struct {
	dir string
}

var _ Sender = (*FileSender)(nil)

func NewFileSender(dir string) *FileSender {
	if dir == "" {
		dir = "."
	}
	return &FileSender{dir: dir}
}

func (s *FileSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create outbox directory: %w", err)
	}

	body := msg.HTMLPart
	if body == "" {
		body = msg.TextPart
	}

	path := s.Path(msg.Subject)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	for _, a := range msg.Attachments {
		attachmentPath := filepath.Join(s.dir, safeName(a.Filename))
		if err := os.WriteFile(attachmentPath, a.Content, 0644); err != nil {
			return fmt.Errorf("failed to write attachment %q: %w", a.Filename, err)
		}
	}

	slog.Info("Message written", "path", path, "recipients", len(msg.To))

	return nil
}

// Path returns where a message with subject is written.
func (s *FileSender) Path(subject string) string {
	return filepath.Join(s.dir, safeName(subject)+".html")
}

func safeName(name string) string {
	return strings.NewReplacer("/", "-", "\\", "-", "\x00", "").Replace(name)
}
