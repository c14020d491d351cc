package mailer

import (
	"context"

	"github.com/pizzabox/pizzabox-backend/pkg/config"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends fire-and-forget mail. Callers never block on delivery and
// never fail a request because mail could not be sent.
type Mailer interface {
	Send(ctx context.Context, msg Message)
}

// LogMailer is the default no-provider implementation: it records what would
// have been sent. Wiring a real provider replaces this behind the interface.
type LogMailer struct {
	from    string
	enabled bool
	logg    *logger.Logger
}

func NewLogMailer(cfg config.MailConfig, logg *logger.Logger) *LogMailer {
	return &LogMailer{from: cfg.FromAddress, enabled: cfg.Enabled, logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) {
	logCtx := m.logg.WithFields(ctx, map[string]any{
		"mail_from":    m.from,
		"mail_to":      msg.To,
		"mail_subject": msg.Subject,
	})
	if !m.enabled {
		m.logg.Info(logCtx, "mail disabled, dropping message")
		return
	}
	m.logg.Info(logCtx, "mail queued")
}
