// Package telemetry обеспечивает наблюдаемость сервиса.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики scheduler'а и рассылки
//
// Метрики экспортируются на /metrics endpoint.
package telemetry
