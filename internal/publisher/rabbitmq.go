package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"neargrid/internal/domain"
	"neargrid/internal/feed"
	"neargrid/internal/notify"
)

// Message types understood by the browser gateway.
const (
	TypeRender        = "render"
	TypeStatus        = "status"
	TypeIdentity      = "identity"
	TypeSubmitControl = "submit_control"
	TypeToast         = "toast"
	TypeToastDismiss  = "toast_dismiss"
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    amqpChannel
	exchange   string
	routingKey string
	logger     *slog.Logger

	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		cfg.RoutingKey,
		cfg.Exchange,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return newRabbitMQ(conn, ch, cfg, logger), nil
}

func newRabbitMQ(conn *amqp.Connection, ch amqpChannel, cfg Config, logger *slog.Logger) *RabbitMQ {
	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}
}

// Message is the envelope of every published update.
type Message struct {
	Type       string                `json:"type"`
	Collection domain.CollectionKind `json:"collection,omitempty"`
	Payload    any                   `json:"payload"`
	Timestamp  time.Time             `json:"timestamp"`
}

type statusPayload struct {
	Status domain.SyncStatus `json:"status"`
}

type identityPayload struct {
	SignedIn bool             `json:"signed_in"`
	User     *domain.Identity `json:"user,omitempty"`
}

type submitControlPayload struct {
	Enabled bool `json:"enabled"`
}

type toastDismissPayload struct {
	ID string `json:"id"`
}

// Render publishes a reconciliation plan for one collection.
func (r *RabbitMQ) Render(ctx context.Context, plan feed.RenderPlan) error {
	return r.publish(ctx, Message{Type: TypeRender, Collection: plan.Kind, Payload: plan})
}

// Status publishes the aggregate connectivity indicator.
func (r *RabbitMQ) Status(ctx context.Context, status domain.SyncStatus) error {
	return r.publish(ctx, Message{Type: TypeStatus, Payload: statusPayload{Status: status}})
}

// Identity publishes the signed-in user, or a signed-out state when user is nil.
func (r *RabbitMQ) Identity(ctx context.Context, user *domain.Identity) error {
	return r.publish(ctx, Message{Type: TypeIdentity, Payload: identityPayload{SignedIn: user != nil, User: user}})
}

// SubmitControl enables or disables the submit control.
func (r *RabbitMQ) SubmitControl(ctx context.Context, enabled bool) error {
	return r.publish(ctx, Message{Type: TypeSubmitControl, Payload: submitControlPayload{Enabled: enabled}})
}

func (r *RabbitMQ) ShowToast(ctx context.Context, toast notify.Toast) error {
	return r.publish(ctx, Message{Type: TypeToast, Payload: toast})
}

func (r *RabbitMQ) DismissToast(ctx context.Context, id string) error {
	return r.publish(ctx, Message{Type: TypeToastDismiss, Payload: toastDismissPayload{ID: id}})
}

func (r *RabbitMQ) publish(ctx context.Context, msg Message) error {
	msg.Timestamp = time.Now().UTC()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	r.mu.Lock()
	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         msg.Type,
			Body:         body,
			Timestamp:    msg.Timestamp,
		},
	)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s message: %w", msg.Type, err)
	}

	r.logger.Debug("published message",
		"type", msg.Type,
		"collection", msg.Collection,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
