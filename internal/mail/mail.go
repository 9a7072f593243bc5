// Package mail sends the transactional emails FoodShare needs: account
// verification, password reset and pickup assignment notices.
//
// Services depend on the Sender interface only. Production wires an
// SMTPSender; development and tests use LogSender or a recording fake, so
// nothing in the request path cares how a message actually leaves.
package mail

import (
	"context"
	"log/slog"
)

// Message is one outgoing email. Text is required; HTML is optional and
// sent as an alternative part when present.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them.
// It is the default when no SMTP host is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("email not delivered (log sender)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Text),
	)
	return nil
}
