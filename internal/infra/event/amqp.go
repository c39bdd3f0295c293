package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"foodorder/internal/event"

	amqp "github.com/rabbitmq/amqp091-go"
)

const ordersExchange = "orders.events"

type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// ConnectAMQP はブローカーに接続し、耐久性のあるtopic exchangeを宣言する。
func ConnectAMQP(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = channel.ExchangeDeclare(
		ordersExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, channel: channel}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e event.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 例: order.create_order / order.update_order_status
	routingKey := fmt.Sprintf("%s.%s", e.ResourceType, strings.ToLower(string(e.Action)))

	return p.channel.PublishWithContext(ctx,
		ordersExchange, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    e.OccurredAt,
		})
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
