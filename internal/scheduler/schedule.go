package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule — раз в минуту.
const DefaultSchedule = "@every 1m"

// ParseSchedule парсит cron-выражение (5 полей или дескриптор @every/@hourly/...).
func ParseSchedule(spec string) (cron.Schedule, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// ValidateSchedule проверяет валидность cron-выражения.
func ValidateSchedule(spec string) error {
	_, err := ParseSchedule(spec)
	return err
}
