package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultEmailInterval — интервал между письмами в минутах, если он не задан.
const DefaultEmailInterval = 10

// TestEmailInterval — интервал для lead'ов, созданных через test-trigger.
const TestEmailInterval = 1

// Lead — контакт, которому периодически отправляются follow-up письма.
//
// Scheduler читает Status, LastContactedAt, EmailInterval и CreatedAt,
// а изменяет только LastContactedAt после подтверждённой доставки.
type Lead struct {
	// ID — уникальный идентификатор lead'а.
	ID uuid.UUID `json:"id"`

	// Email — нормализованный адрес (trim + lower case).
	Email string `json:"email"`

	// Status — текущий статус, см. LeadStatus.
	Status LeadStatus `json:"status"`

	// LastContactedAt — время последней успешной отправки.
	// Nil, если писем ещё не было.
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`

	// EmailInterval — сколько минут должно пройти между письмами.
	// Всегда положительное целое.
	EmailInterval int `json:"email_interval"`

	// CreatedAt — время создания. Точка отсчёта, если LastContactedAt не задан.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления записи.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLead создаёт lead в статусе ACTIVE.
// interval <= 0 заменяется на DefaultEmailInterval.
func NewLead(email string, interval int, now time.Time) *Lead {
	if interval <= 0 {
		interval = DefaultEmailInterval
	}
	now = now.UTC()
	return &Lead{
		ID:            uuid.New(),
		Email:         NormalizeEmail(email),
		Status:        LeadStatusActive,
		EmailInterval: interval,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NormalizeEmail приводит адрес к каноническому виду.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsActive возвращает true, если lead участвует в рассылке.
func (l *Lead) IsActive() bool {
	return l.Status == LeadStatusActive
}

// ReferenceTime возвращает точку отсчёта для проверки due:
// LastContactedAt, а если его нет — CreatedAt.
func (l *Lead) ReferenceTime() time.Time {
	if l.LastContactedAt != nil {
		return *l.LastContactedAt
	}
	return l.CreatedAt
}

// RecordContact фиксирует успешную отправку.
// Время контакта никогда не откатывается назад.
func (l *Lead) RecordContact(at time.Time) {
	if l.LastContactedAt != nil && at.Before(*l.LastContactedAt) {
		return
	}
	at = at.UTC()
	l.LastContactedAt = &at
	l.UpdatedAt = at
}
