package watch

import (
	"context"
	"encoding/json"
	"fmt"

	"projecttracker/pkg/metrics"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const ExchangeName = "changes"

// NewConnection creates a new RabbitMQ connection.
func NewConnection(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange declares the change-event topic exchange.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

// MQPublisher publishes change events to the topic exchange so that every
// server instance can feed its local hub.
type MQPublisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewMQPublisher(url string) (*MQPublisher, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &MQPublisher{conn: conn, channel: ch}, nil
}

func (p *MQPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// IsConnected checks if the publisher connection is still alive.
func (p *MQPublisher) IsConnected() bool {
	if p.conn == nil || p.channel == nil {
		return false
	}
	return !p.conn.IsClosed()
}

func (p *MQPublisher) Publish(_ context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	err = p.channel.Publish(
		ExchangeName,
		ev.RoutingKey(),
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		metrics.IncrementChangeEvent(ev.Collection, "failed")
		return err
	}
	metrics.IncrementChangeEvent(ev.Collection, "success")
	return nil
}

// MQConsumer drains change events from the exchange into a hub.
type MQConsumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   amqp091.Queue
	hub     *Hub
	logger  *zap.Logger
}

// NewMQConsumer binds an exclusive queue to every change routing key. The
// queue is per-instance: each server sees all events and feeds its own
// subscribers.
func NewMQConsumer(url string, hub *Hub, logger *zap.Logger) (*MQConsumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-generated name
		false, // not durable; missed events just mean one stale snapshot
		true,  // auto-delete
		true,  // exclusive
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "#.changed", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	logger.Info("Change consumer initialized",
		zap.String("queue", q.Name),
		zap.String("exchange", ExchangeName),
	)

	return &MQConsumer{conn: conn, channel: ch, queue: q, hub: hub, logger: logger}, nil
}

func (c *MQConsumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *MQConsumer) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

// StartConsuming blocks draining deliveries; run it in a goroutine.
func (c *MQConsumer) StartConsuming() error {
	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"",
		true, // auto-ack; events are fire-and-forget invalidations
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Change consumer started", zap.String("queue", c.queue.Name))

	for msg := range deliveries {
		var ev Event
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			c.logger.Error("Failed to decode change event", zap.Error(err))
			continue
		}
		c.hub.Dispatch(ev)
	}
	return nil
}
