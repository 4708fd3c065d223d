package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// ErrNoRecipient — пустой адрес получателя.
var ErrNoRecipient = errors.New("recipient address is required")

// sender — то, что умеет отправить готовое сообщение. *gomail.Dialer.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig — параметры SMTP.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTP отправляет письма через SMTP-сервер.
type SMTP struct {
	from   string
	sender sender
	logger *slog.Logger
}

// NewSMTP создаёт SMTP notifier.
func NewSMTP(cfg SMTPConfig, logger *slog.Logger) *SMTP {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTP{
		from:   cfg.From,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		logger: logger,
	}
}

// Send отправляет HTML-письмо.
//
// Истёкший ctx проверяется до соединения: письмо не уходит.
// gomail не принимает context, поэтому начатая отправка идёт в отдельной
// горутине, а Send возвращается по истечении ctx. Такое письмо может быть
// доставлено, хотя Send вернул ошибку: при таймауте посреди диалога
// доставка at-least-once.
func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send smtp to %s: %w", to, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	s.logger.Debug("sending email", "to", to, "from", s.from, "subject", subject)

	done := make(chan error, 1)
	go func() {
		done <- s.sender.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send smtp to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send smtp to %s: %w", to, ctx.Err())
	}
}
