package domain

// LeadStatus — статус lead'а.
//
// Жизненный цикл:
//
//	ACTIVE ⇄ PAUSED
//	ACTIVE → COMPLETED
//
// Переходы выполняют внешние акторы (API, CLI). Scheduler статус не меняет
// и обрабатывает только ACTIVE.
type LeadStatus string

const (
	// LeadStatusActive — lead участвует в рассылке follow-up писем.
	LeadStatusActive LeadStatus = "active"

	// LeadStatusPaused — рассылка временно приостановлена.
	LeadStatusPaused LeadStatus = "paused"

	// LeadStatusCompleted — работа с lead'ом завершена.
	LeadStatusCompleted LeadStatus = "completed"
)

// String возвращает строковое представление LeadStatus.
func (s LeadStatus) String() string {
	return string(s)
}

// IsValid проверяет, что статус входит в допустимый набор.
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusActive, LeadStatusPaused, LeadStatusCompleted:
		return true
	default:
		return false
	}
}

// ParseLeadStatus парсит строку в LeadStatus.
// Возвращает false для неизвестных значений.
func ParseLeadStatus(s string) (LeadStatus, bool) {
	status := LeadStatus(s)
	return status, status.IsValid()
}
