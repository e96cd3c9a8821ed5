// Package rabbitmq содержит подключение к RabbitMQ и публикацию JSON-сообщений.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Connect подключается к брокеру, повторяя попытки retries раз с паузой delay.
func Connect(ctx context.Context, connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var (
		conn *amqp.Connection
		err  error
	)
	attempts := max(retries, 1)

	for attempt := range attempts {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал и объявляет durable topic exchange для событий.
func SetupChannel(conn *amqp.Connection, exchange string) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ch, nil
}
