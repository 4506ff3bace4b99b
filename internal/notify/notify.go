// Package notify hands staff notifications to the push-delivery worker through
// RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange and routing keys consumed by the delivery worker.
const (
	ExchangeName   = "lab.notifications"
	ExchangeKind   = "topic"
	RoutingKeyAll  = "notify.all"
	RoutingKeyUser = "notify.user"
)

// Message is the JSON body published for every notification.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes notifications to a durable topic exchange.
type RabbitPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel publishChannel
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// DialRabbit connects to the broker and declares the notification exchange.
func DialRabbit(url string, logger *slog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	p := newRabbitPublisher(ch, logger)
	p.conn = conn
	return p, nil
}

var errPublisherClosed = errors.New("notify: publisher is closed")

func newRabbitPublisher(ch publishChannel, logger *slog.Logger) *RabbitPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RabbitPublisher{
		channel: ch,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  logger.With("component", "notify"),
	}
}

// NotifyAll publishes a broadcast to every subscribed device.
func (p *RabbitPublisher) NotifyAll(ctx context.Context, title, body string) error {
	return p.publish(ctx, RoutingKeyAll, Message{Title: title, Body: body})
}

// NotifyUser publishes a notification addressed to one user's devices.
func (p *RabbitPublisher) NotifyUser(ctx context.Context, userID, title, body string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("notify: user id is required")
	}
	return p.publish(ctx, RoutingKeyUser, Message{UserID: userID, Title: title, Body: body})
}

func (p *RabbitPublisher) publish(ctx context.Context, routingKey string, msg Message) error {
	if p == nil {
		return errPublisherClosed
	}

	msg.ID = p.newID()
	msg.CreatedAt = p.now().UTC()
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return errPublisherClosed
	}
	if err := p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.CreatedAt,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	p.logger.DebugContext(ctx, "notification published", "routing_key", routingKey, "message_id", msg.ID)
	return nil
}

// Close releases the channel and the connection.
func (p *RabbitPublisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
		p.channel = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}

// Nop discards notifications. It is used when no broker is configured.
type Nop struct{}

func (Nop) NotifyAll(context.Context, string, string) error { return nil }

func (Nop) NotifyUser(context.Context, string, string, string) error { return nil }
