// Package notify содержит реализации доставки писем.
//
//   - smtp.go — отправка через SMTP (gomail)
//   - http.go — отправка через HTTP API почтового провайдера (SendGrid v3)
//   - log.go  — dry-run: письмо только пишется в лог
//
// Все реализации удовлетворяют followup.Notifier.
package notify
