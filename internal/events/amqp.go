package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel and returns a closer for the whole connection.
type dialFunc func(url string) (channel, func() error, error)

// AMQPPublisher opens a connection per publish and declares a durable queue
// named after the routing key on the default exchange.
type AMQPPublisher struct {
	url  string
	dial dialFunc
	now  func() time.Time
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url, dial: dialAMQP, now: time.Now}
}

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, conn.Close, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	now := p.now().UTC()
	body, err := json.Marshal(Event{Type: routingKey, OccurredAt: now, Data: data})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = closeConn() }()
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(routingKey, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", routingKey, err)
	}

	err = ch.PublishWithContext(ctx, "", routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}
