// Package cli реализует followupctl — клиент командной строки для followup API.
//
// CLI работает через HTTP и не импортирует внутренние пакеты сервиса.
//
// Вывод: таблицы (text/tabwriter) по умолчанию, JSON с флагом --json.
// Данные идут в stdout, сообщения — в stderr:
//
//	followupctl lead list --status active --json | jq '.[].email'
//
// Команды:
//   - lead: list, import, show, pause, resume, complete, delete, purge
//   - test-email
//   - pass: run, last
//
// Группы создаются фабриками (NewLeadCmd и т.д.), принимающими clientFn и
// outputFn — замыкания, создающие Client и Output после парсинга флагов.
package cli
