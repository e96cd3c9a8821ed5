// Package events публикует доменные события магазина (регистрация, изменения каталога)
// в RabbitMQ. Публикация best-effort: ошибка брокера не отменяет операцию.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/storefront/internal/lib/rabbitmq"
)

// Типы событий, они же routing key.
const (
	UserRegistered      = "user.registered"
	UserPasswordChanged = "user.password_changed"
	ProductCreated      = "product.created"
	ProductUpdated      = "product.updated"
	ProductDeleted      = "product.deleted"
)

// Event конверт события.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher публикует событие с произвольной полезной нагрузкой.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// AMQPPublisher публикует события в topic exchange.
// *amqp.Channel не поддерживает конкурентную публикацию, поэтому вызовы сериализуются.
type AMQPPublisher struct {
	mu       sync.Mutex
	ch       rabbitmq.Channel
	closer   func() error
	exchange string
	now      func() time.Time
}

// NewAMQPPublisher открывает канал и объявляет exchange.
func NewAMQPPublisher(conn *amqp.Connection, exchange string) (*AMQPPublisher, error) {
	const op = "events.NewAMQPPublisher"
	ch, err := rabbitmq.SetupChannel(conn, exchange)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p := newPublisher(ch, exchange)
	p.closer = ch.Close
	return p, nil
}

func newPublisher(ch rabbitmq.Channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{
		ch:       ch,
		exchange: exchange,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Publish отправляет событие eventType с routing key, равным типу.
func (p *AMQPPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	const op = "events.Publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ev := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: p.now(),
		Payload:    payload,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	msg := rabbitmq.Message{
		Exchange:   p.exchange,
		RoutingKey: eventType,
		ID:         ev.ID,
		Type:       eventType,
		Payload:    ev,
	}
	if err := rabbitmq.Publish(p.ch, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает канал.
func (p *AMQPPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// Noop отбрасывает события; используется, когда AMQP_URL не задан.
type Noop struct{}

// Publish ничего не делает.
func (Noop) Publish(context.Context, string, any) error { return nil }
