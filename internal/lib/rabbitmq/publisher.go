package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// AppID проставляется в свойство app_id всех исходящих сообщений.
const AppID = "storefront"

// Channel часть *amqp.Channel, нужная для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Message исходящее сообщение. Payload сериализуется в JSON.
type Message struct {
	Exchange   string
	RoutingKey string
	ID         string
	Type       string
	Headers    amqp.Table
	Payload    any
}

// Publish отправляет msg как persistent-сообщение.
func Publish(ch Channel, msg Message) error {
	const op = "rabbitmq.Publish"
	if msg.RoutingKey == "" {
		return fmt.Errorf("%s: %w", op, errors.New("empty routing key"))
	}

	body, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("%s: marshal %s: %w", op, msg.Type, err)
	}

	pub := amqp.Publishing{
		Headers:      msg.Headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    time.Now().UTC(),
		Type:         msg.Type,
		AppId:        AppID,
		Body:         body,
	}
	if err := ch.Publish(msg.Exchange, msg.RoutingKey, false, false, pub); err != nil {
		return fmt.Errorf("%s: %s -> %s: %w", op, msg.RoutingKey, msg.Exchange, err)
	}
	return nil
}
