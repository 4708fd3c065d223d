package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/followup/internal/domain"
	"github.com/shaiso/followup/internal/followup"
)

// Lead DTOs

// ImportLeadsRequest — запрос на массовый импорт.
//
// EmailInterval не задан — используется интервал по умолчанию (10 минут).
type ImportLeadsRequest struct {
	Leads         []string `json:"leads"`
	EmailInterval *int     `json:"email_interval,omitempty"`
}

// ImportLeadsResponse — результат импорта.
type ImportLeadsResponse struct {
	Imported int            `json:"imported"`
	Leads    []LeadResponse `json:"leads"`
}

// SetStatusRequest — запрос на смену статуса.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// TestLeadRequest — запрос test-trigger.
type TestLeadRequest struct {
	Email string `json:"email"`
}

// TestLeadResponse — результат test-trigger.
type TestLeadResponse struct {
	Lead      LeadResponse `json:"lead"`
	EmailSent bool         `json:"email_sent"`
	Error     string       `json:"error,omitempty"`
}

// DeleteAllResponse — результат удаления всех leads.
type DeleteAllResponse struct {
	Deleted int64 `json:"deleted"`
}

// LeadResponse — ответ с lead'ом.
type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Status          string     `json:"status"`
	EmailInterval   int        `json:"email_interval"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	NextDueAt       *time.Time `json:"next_due_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// LeadFromDomain конвертирует domain.Lead в LeadResponse.
func LeadFromDomain(l *domain.Lead) LeadResponse {
	resp := LeadResponse{
		ID:              l.ID,
		Email:           l.Email,
		Status:          l.Status.String(),
		EmailInterval:   l.EmailInterval,
		LastContactedAt: l.LastContactedAt,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if l.IsActive() && l.EmailInterval > 0 {
		next := followup.NextDueAt(l)
		resp.NextDueAt = &next
	}
	return resp
}

// Pass DTOs

// PassResponse — итоги прохода.
type PassResponse struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	DurationMS     int64     `json:"duration_ms"`
	Evaluated      int       `json:"evaluated"`
	Due            int       `json:"due"`
	Sent           int       `json:"sent"`
	DeliveryFailed int       `json:"delivery_failed"`
	UpdateFailed   int       `json:"update_failed"`
	Skipped        int       `json:"skipped"`
}

// PassFromResult конвертирует followup.PassResult в PassResponse.
func PassFromResult(r followup.PassResult) PassResponse {
	return PassResponse{
		ID:             r.ID,
		StartedAt:      r.StartedAt,
		DurationMS:     r.Duration.Milliseconds(),
		Evaluated:      r.Evaluated,
		Due:            r.Due,
		Sent:           r.Sent,
		DeliveryFailed: r.DeliveryFailed,
		UpdateFailed:   r.UpdateFailed,
		Skipped:        r.Skipped,
	}
}

// HealthResponse — ответ /api/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
