package followup

import "errors"

// Ошибки рассылки.
var (
	// ErrFetchFailed — не удалось получить список leads; проход прерван.
	ErrFetchFailed = errors.New("fetch leads failed")

	// ErrDeliveryFailed — Notifier не доставил письмо.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrUpdateFailed — письмо доставлено, но last_contacted_at не записан.
	// Возможна повторная отправка на следующем проходе.
	ErrUpdateFailed = errors.New("update after delivery failed")

	// ErrInvalidInterval — у lead'а неположительный email_interval.
	ErrInvalidInterval = errors.New("invalid email interval")
)
