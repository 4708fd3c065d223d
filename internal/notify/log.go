package notify

import (
	"context"
	"log/slog"
)

// Log — notifier без реальной отправки. Для локальной разработки.
type Log struct {
	logger *slog.Logger
}

// NewLog создаёт Log notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Send пишет письмо в лог и всегда "доставляет" его.
func (l *Log) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.Info("email (dry run)",
		"to", to,
		"subject", subject,
		"body_bytes", len(body),
	)
	return nil
}
