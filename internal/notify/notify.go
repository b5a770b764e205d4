// Package notify is the user-notification collaborator. Delivery is
// fire-and-forget: the billing code logs failures and never lets them
// roll back a committed transaction.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Category string

const (
	CategoryRequest Category = "request"
	CategoryRide    Category = "ride"
	CategoryWallet  Category = "wallet"
)

type Notification struct {
	UserID   uuid.UUID `json:"userId"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Category Category  `json:"category"`
	SentAt   time.Time `json:"sentAt"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// AMQPNotifier publishes notifications to a topic exchange; a downstream
// consumer fans them out to push/email.
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func DialAMQP(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPNotifier{conn: conn, channel: ch, exchange: exchange}, nil
}

func (a *AMQPNotifier) Notify(ctx context.Context, n Notification) error {
	if n.SentAt.IsZero() {
		n.SentAt = time.Now()
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	routingKey := fmt.Sprintf("notification.%s.%s", n.Category, n.UserID)

	err = a.channel.PublishWithContext(
		ctx,
		a.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   n.SentAt,
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (a *AMQPNotifier) Close() error {
	return a.conn.Close()
}

// LogNotifier stands in when no broker is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.Logger.Info("notification",
		slog.String("user_id", n.UserID.String()),
		slog.String("category", string(n.Category)),
		slog.String("title", n.Title),
		slog.String("message", n.Message),
	)
	return nil
}
