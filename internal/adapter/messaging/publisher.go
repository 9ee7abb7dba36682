// Package messaging publishes booking lifecycle events to RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/srgjo27/suite_reservation/internal/core/ports"
)

// Exchange is a topic exchange; routing keys are the event types.
const Exchange = "bookings"

// connection and channel are the parts of *amqp.Connection and *amqp.Channel
// the publisher uses.
type connection interface {
	IsClosed() bool
	Close() error
}

type channel interface {
	IsClosed() bool
	Close() error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitPublisher struct {
	logger *logrus.Logger
	dial   func() (connection, channel, error)

	mu   sync.Mutex
	conn connection
	ch   channel
}

func NewRabbitPublisher(url string, logger *logrus.Logger) (*RabbitPublisher, error) {
	p := &RabbitPublisher{
		logger: logger,
		dial:   func() (connection, channel, error) { return dialRabbit(url) },
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func dialRabbit(url string) (connection, channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return conn, ch, nil
}

func (p *RabbitPublisher) connect() error {
	conn, ch, err := p.dial()
	if err != nil {
		return err
	}
	p.conn, p.ch = conn, ch
	return nil
}

// healthy reports whether both the connection and its channel are still open.
// A broker can close the channel on its own, leaving the connection up.
func (p *RabbitPublisher) healthy() bool {
	return p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed()
}

// Publish sends the event as persistent JSON, reconnecting once if the channel was lost.
func (p *RabbitPublisher) Publish(ctx context.Context, event ports.BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    event.BookingID.String() + ":" + string(event.Type),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.healthy() {
		p.logger.Warn("rabbitmq connection or channel closed, reconnecting")
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
	}

	if err := p.ch.PublishWithContext(ctx, Exchange, string(event.Type), false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}

	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *RabbitPublisher) closeLocked() error {
	var err error
	if p.ch != nil && !p.ch.IsClosed() {
		_ = p.ch.Close()
	}
	if p.conn != nil && !p.conn.IsClosed() {
		err = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
	return err
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event ports.BookingEvent) error {
	p.logger.WithFields(logrus.Fields{
		"event":      event.Type,
		"booking_id": event.BookingID,
		"user_id":    event.UserID,
		"suite_id":   event.SuiteID,
		"refunded":   event.Refunded,
	}).Info("booking event")
	return nil
}
