// Package intake — операции над leads, внешние по отношению к рассылке:
// импорт, test-trigger, просмотр, смена статуса, удаление.
//
// Scheduler меняет только last_contacted_at; статус меняется здесь.
package intake
