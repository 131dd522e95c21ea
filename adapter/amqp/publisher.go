// Package amqp publishes JSON messages to a RabbitMQ exchange.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-staff/pkg/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Config selects the target exchange.
type Config struct {
	Exchange string
	Clock    types.Clock
}

// Publisher serializes values to JSON and publishes them persistently.
type Publisher struct {
	channel  Channel
	exchange string
	clock    types.Clock
}

// NewPublisher wraps an open channel.
func NewPublisher(ch Channel, cfg Config) (*Publisher, error) {
	if ch == nil {
		return nil, errors.New("amqp: channel required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &Publisher{channel: ch, exchange: cfg.Exchange, clock: clock}, nil
}

// PublishJSON marshals body and publishes it under routingKey.
func (p *Publisher) PublishJSON(ctx context.Context, routingKey string, messageType string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, p.exchange, strings.TrimSpace(routingKey), false, false, amqp.Publishing{
		ContentType:  "application/json",
		Type:         messageType,
		Body:         payload,
		Timestamp:    p.clock.Now(),
		DeliveryMode: amqp.Persistent,
	})
}

// Connection owns the broker connection and the publishing channel.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial connects, opens a channel and declares a durable topic exchange.
func Dial(url, exchange string) (*Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if exchange != "" {
		if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}
	return &Connection{conn: conn, channel: ch}, nil
}

// Channel returns the publishing channel.
func (c *Connection) Channel() *amqp.Channel {
	return c.channel
}

// Close closes the channel and the connection.
func (c *Connection) Close() error {
	if c == nil {
		return nil
	}
	return errors.Join(c.channel.Close(), c.conn.Close())
}
