// Package api содержит HTTP API сервиса.
//
// Структура:
//   - handler.go      — Handler с DI (intake service, scheduler, logger)
//   - routes.go       — chi router и регистрация маршрутов
//   - middleware.go   — middleware (logging, recovery)
//   - response.go     — унифицированные JSON-ответы и обработка ошибок
//   - dto.go          — Data Transfer Objects (request/response)
//   - lead_handler.go — обработчики для /leads и /test-lead-email
//   - pass_handler.go — ручной запуск прохода рассылки
//
// Аутентификации нет: API рассчитан на внутреннюю сеть.
package api
