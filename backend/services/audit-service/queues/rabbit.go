package queues

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitPublisher struct {
	Conn       *amqp.Connection
	Channel    *amqp.Channel
	Exchange   string
	Queue      string
	RoutingKey string
}

func NewRabbitPublisher(amqpURL, exchange, queue, routingKey string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Exchange/queue setup (must match downstream consumers)
	_ = ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	_, _ = ch.QueueDeclare(queue, true, false, false, false, nil)
	_ = ch.QueueBind(queue, routingKey, exchange, false, nil)

	return &RabbitPublisher{
		Conn:       conn,
		Channel:    ch,
		Exchange:   exchange,
		Queue:      queue,
		RoutingKey: routingKey,
	}, nil
}

// PublishEvent republishes a chaincode event payload under a routing key of
// the form "trace.event.<EventName>".
func (r *RabbitPublisher) PublishEvent(eventName string, payload []byte) error {
	return r.Channel.Publish(
		r.Exchange,
		"trace.event."+eventName,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
		},
	)
}

func (r *RabbitPublisher) Close() {
	r.Channel.Close()
	r.Conn.Close()
}
