package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// ExchangeLeads — обменник событий lead'ов.
const ExchangeLeads Exchange = "followup.leads"

// Queues — имена очередей.
const (
	QueueLeadsCreated   Queue = "leads.created"
	QueueLeadsContacted Queue = "leads.contacted"
)

// Routing keys.
const (
	RoutingKeyCreated   RoutingKey = "created"
	RoutingKeyContacted RoutingKey = "contacted"
)

// binding — привязка очереди к обменнику.
type binding struct {
	queue      Queue
	routingKey RoutingKey
}

var bindings = []binding{
	{QueueLeadsCreated, RoutingKeyCreated},
	{QueueLeadsContacted, RoutingKeyContacted},
}

// SetupTopology объявляет exchange и очереди. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeLeads), // name
			"direct",              // type
			true,                  // durable
			false,                 // auto-deleted
			false,                 // internal
			false,                 // no-wait
			nil,                   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeLeads, err)
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(ExchangeLeads), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, ExchangeLeads, err)
			}
		}
		return nil
	})
}
