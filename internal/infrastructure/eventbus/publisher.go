// internal/infrastructure/eventbus/publisher.go
package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"github.com/your-org/wholesale-backend/internal/config"
)

// Publisher sends domain events to a RabbitMQ topic exchange. It satisfies
// the stock engine's EventPublisher interface. Publishing is fire-and-forget
// from the caller's point of view; delivery problems are logged, never
// propagated into the request path.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	confirms chan amqp.Confirmation
	exchange string
	log      *logrus.Logger
}

// NewPublisher connects to the broker and declares the exchange.
func NewPublisher(cfg *config.Config, log *logrus.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.EventBus.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to event bus: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.EventBus.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Confirm mode so Publish can report broker-side failures
	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	confirms := channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	log.WithField("exchange", cfg.EventBus.Exchange).Info("Event bus connected")

	return &Publisher{
		conn:     conn,
		channel:  channel,
		confirms: confirms,
		exchange: cfg.EventBus.Exchange,
		log:      log,
	}, nil
}

// Publish marshals the event as JSON and publishes it under the routing key.
func (p *Publisher) Publish(routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	select {
	case confirm := <-p.confirms:
		if !confirm.Ack {
			return fmt.Errorf("broker rejected publish of %s", routingKey)
		}
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timed out waiting for publish confirm of %s", routingKey)
	}

	p.log.WithField("routing_key", routingKey).Debug("Event published")
	return nil
}

// Close shuts down the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
