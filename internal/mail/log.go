package mail

import (
	"context"

	"github.com/bestflix/backend/internal/logging"
)

// LogSender writes messages to the request logger instead of delivering them.
// It is selected when no SMTP host is configured.
type LogSender struct{}

// Send logs msg at info level.
func (LogSender) Send(ctx context.Context, msg Message) error {
	logging.FromContext(ctx).Info("mail not delivered, no smtp host configured",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
