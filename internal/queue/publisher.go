// Package queue publishes order and license lifecycle events to an AMQP
// broker. The publisher is nil-safe: without a broker the server runs and
// events are dropped.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// Queue names used for lifecycle events.
const (
	// OrderCompletedQueue receives completed order events.
	OrderCompletedQueue = "order.completed"
	// LicenseBoundQueue receives HWID bind events.
	LicenseBoundQueue = "license.bound"
)

// OrderCompletedEvent describes a completed order.
type OrderCompletedEvent struct {
	OrderID    uint64    `json:"order_id"`
	UserID     uint64    `json:"user_id"`
	TotalCents int64     `json:"total_cents"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LicenseBoundEvent describes a successful HWID bind.
type LicenseBoundEvent struct {
	LicenseID  uint64    `json:"license_id"`
	UserID     uint64    `json:"user_id"`
	ProductID  uint64    `json:"product_id"`
	HWID       string    `json:"hwid"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends events to durable AMQP queues.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher constructs a Publisher. An empty URL yields nil, which
// disables event publishing.
func NewPublisher(url string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url}
}

// PublishOrderCompleted sends a completed order event.
func (p *Publisher) PublishOrderCompleted(ctx context.Context, event OrderCompletedEvent) {
	p.publish(ctx, OrderCompletedQueue, event)
}

// PublishLicenseBound sends an HWID bind event.
func (p *Publisher) PublishLicenseBound(ctx context.Context, event LicenseBoundEvent) {
	p.publish(ctx, LicenseBoundQueue, event)
}

// publish marshals and sends the event. Failures are logged, never returned:
// lifecycle events are best-effort and must not fail the triggering mutation.
func (p *Publisher) publish(ctx context.Context, queueName string, event any) {
	if p == nil {
		return
	}
	body, errMarshal := json.Marshal(event)
	if errMarshal != nil {
		log.WithError(errMarshal).WithField("queue", queueName).Error("queue: marshal event")
		return
	}
	ch, errEnsure := p.ensureChannel()
	if errEnsure != nil {
		log.WithError(errEnsure).WithField("queue", queueName).Warn("queue: broker unavailable, dropping event")
		return
	}
	errPublish := ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if errPublish != nil {
		p.reset()
		log.WithError(errPublish).WithField("queue", queueName).Warn("queue: publish failed, dropping event")
	}
}

func (p *Publisher) ensureChannel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}

	conn, errDial := amqp.Dial(p.url)
	if errDial != nil {
		return nil, fmt.Errorf("dial broker: %w", errDial)
	}
	ch, errChannel := conn.Channel()
	if errChannel != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", errChannel)
	}
	for _, queueName := range []string{OrderCompletedQueue, LicenseBoundQueue} {
		if _, errDeclare := ch.QueueDeclare(queueName, true, false, false, false, nil); errDeclare != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", queueName, errDeclare)
		}
	}
	p.conn = conn
	p.ch = ch
	return ch, nil
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close shuts down the broker connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.reset()
}
