package outbox

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationQueue receives every dispatched job; the notification
// service consumes it to send emails.
const NotificationQueue = "portal_notifications"

// Publisher is what the dispatcher needs from a message broker.
type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
	Close() error
}

// RabbitPublisher publishes jobs to RabbitMQ.
type RabbitPublisher struct {
	conn *amqp.Connection
	chn  *amqp.Channel
}

func NewRabbitPublisher(url string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	chn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	// Durable queue: jobs survive a broker restart
	if _, err := chn.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		chn.Close()
		conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, chn: chn}, nil
}

func (r *RabbitPublisher) Publish(ctx context.Context, queueName string, body []byte) error {
	return r.chn.PublishWithContext(
		ctx,
		"",        // default exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (r *RabbitPublisher) Close() error {
	if err := r.chn.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}
