package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeLeadCreated   MessageType = "lead.created"
	MessageTypeLeadContacted MessageType = "lead.contacted"
)

// Message — сообщение для публикации.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// LeadCreatedPayload — payload для lead.created.
type LeadCreatedPayload struct {
	LeadID        uuid.UUID `json:"lead_id"`
	Email         string    `json:"email"`
	EmailInterval int       `json:"email_interval"`
	Source        string    `json:"source"` // import | test
}

// LeadContactedPayload — payload для lead.contacted.
type LeadContactedPayload struct {
	LeadID      uuid.UUID `json:"lead_id"`
	Email       string    `json:"email"`
	ContactedAt time.Time `json:"contacted_at"`
}

// channelPublisher — то, во что публикуются сообщения. *amqp.Channel.
type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher публикует события в RabbitMQ.
type Publisher struct {
	withChannel func(ctx context.Context, fn func(ch channelPublisher) error) error
	logger      *slog.Logger
}

// NewPublisher создаёт новый Publisher поверх соединения.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		withChannel: func(ctx context.Context, fn func(ch channelPublisher) error) error {
			return conn.WithChannel(ctx, func(ch *amqp.Channel) error { return fn(ch) })
		},
		logger: logger,
	}
}

// Publish публикует сообщение в ExchangeLeads с routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.withChannel(ctx, func(ch channelPublisher) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangeLeads),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", ExchangeLeads, routingKey, err)
		}

		p.logger.Debug("published message",
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishLeadContacted публикует событие об успешном follow-up.
func (p *Publisher) PublishLeadContacted(ctx context.Context, leadID uuid.UUID, email string, at time.Time) error {
	return p.Publish(ctx, RoutingKeyContacted, newMessage(MessageTypeLeadContacted, LeadContactedPayload{
		LeadID:      leadID,
		Email:       email,
		ContactedAt: at,
	}))
}

// PublishLeadCreated публикует событие о новом lead'е.
func (p *Publisher) PublishLeadCreated(ctx context.Context, payload LeadCreatedPayload) error {
	return p.Publish(ctx, RoutingKeyCreated, newMessage(MessageTypeLeadCreated, payload))
}

func newMessage(t MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}
