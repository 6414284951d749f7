package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/notarypros/booking-service/pkg/logging"
)

const prefetchCount = 10

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *logging.Logger
}

// NewConsumer declares a durable queue bound to the bookings exchange with
// each of the given routing keys.
func NewConsumer(url, queue string, bindings []string, logger *logging.Logger) (*Consumer, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}

	fail := func(err error) (*Consumer, error) {
		ch.Close()
		conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("rabbitmq queue declare: %w", err))
	}

	for _, key := range bindings {
		if err := ch.QueueBind(q.Name, key, ExchangeName, false, nil); err != nil {
			return fail(fmt.Errorf("rabbitmq queue bind %s: %w", key, err))
		}
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return fail(fmt.Errorf("rabbitmq qos: %w", err))
	}

	return &Consumer{conn: conn, channel: ch, queue: q.Name, logger: logger}, nil
}

func (c *Consumer) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack = false, we ack manually after processing
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}

	c.logger.Info("consuming from queue", "queue", c.queue)
	return msgs, nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
