// Package domain содержит доменные типы сервиса follow-up рассылки.
//
//   - lead.go   — Lead, нормализация email, точка отсчёта для due
//   - status.go — LeadStatus (active / paused / completed)
package domain
