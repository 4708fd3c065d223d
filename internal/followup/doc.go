// Package followup реализует рассылку follow-up писем lead'ам.
//
// Структура:
//   - due.go        — чистая проверка "пора ли писать" (Due-Evaluation)
//   - dispatcher.go — один проход: выборка active leads → due → отправка → фиксация
//   - message.go    — шаблоны писем
//   - errors.go     — ошибки пакета
//
// Один проход (RunPass) обрабатывает каждый lead независимо:
// ошибка доставки или записи для одного lead'а не прерывает обработку остальных.
//
// Семантика доставки — at-least-once. Если письмо ушло, а запись
// last_contacted_at не удалась, lead останется due и получит письмо повторно
// на следующем проходе. Такие случаи логируются и считаются отдельно
// (followup_update_failures_total).
//
// Не-пересечение проходов обеспечивает пакет scheduler; Dispatcher сам по себе
// не защищён от параллельного вызова RunPass.
package followup
