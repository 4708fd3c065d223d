package followup

import (
	"time"

	"github.com/shaiso/followup/internal/domain"
)

// ElapsedMinutes возвращает floor((now - reference) / 1m).
//
// Гранулярность — целые минуты; для now < reference результат отрицательный.
func ElapsedMinutes(reference, now time.Time) int64 {
	d := now.Sub(reference)
	minutes := int64(d / time.Minute)
	if d < 0 && d%time.Minute != 0 {
		minutes--
	}
	return minutes
}

// IsDue сообщает, прошло ли не меньше interval целых минут с reference.
// Граница включительная. Для interval <= 0 всегда false.
func IsDue(reference time.Time, interval int, now time.Time) bool {
	if interval <= 0 {
		return false
	}
	return ElapsedMinutes(reference, now) >= int64(interval)
}

// IsLeadDue применяет IsDue к lead'у: точка отсчёта — LastContactedAt,
// а если его нет — CreatedAt. Статус lead'а не проверяется.
func IsLeadDue(lead *domain.Lead, now time.Time) bool {
	return IsDue(lead.ReferenceTime(), lead.EmailInterval, now)
}

// NextDueAt возвращает момент, начиная с которого lead станет due.
func NextDueAt(lead *domain.Lead) time.Time {
	return lead.ReferenceTime().Add(time.Duration(lead.EmailInterval) * time.Minute)
}
