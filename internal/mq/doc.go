// Package mq публикует события о lead'ах в RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchange, queues, bindings
//   - publisher.go  — публикация событий
//
// Типы сообщений:
//   - lead.created   — lead создан (импорт или test-trigger)
//   - lead.contacted — follow-up письмо доставлено и зафиксировано
//
// Публикация необязательна: сервис работает и без RabbitMQ.
package mq
