// Package consumer turns RabbitMQ deliveries on the bookings exchange into
// calls on the local repositories and services.
package consumer

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/notarypros/booking-service/internal/metrics"
	"github.com/notarypros/booking-service/pkg/logging"
)

// Outcome says how a handled delivery is settled with the broker.
type Outcome string

const (
	Ack     Outcome = "acked"
	Requeue Outcome = "requeued"
	Drop    Outcome = "dropped"
)

type handler interface {
	name() string
	handle(ctx context.Context, msg amqp.Delivery) Outcome
}

// start drains msgs in a goroutine until the channel closes or ctx ends.
func start(ctx context.Context, msgs <-chan amqp.Delivery, h handler, logger *logging.Logger, m *metrics.BookingMetrics) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("consumer stopping", "consumer", h.name())
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("channel closed, stopping consumer", "consumer", h.name())
					return
				}
				outcome := h.handle(ctx, msg)
				settle(msg, outcome, logger)
				m.ObserveConsumer(h.name(), string(outcome))
			}
		}
	}()
}

func settle(msg amqp.Delivery, outcome Outcome, logger *logging.Logger) {
	var err error
	switch outcome {
	case Ack:
		err = msg.Ack(false)
	case Requeue:
		err = msg.Nack(false, true)
	default:
		err = msg.Nack(false, false)
	}
	if err != nil {
		logger.Error("failed to settle delivery", "routing_key", msg.RoutingKey, "outcome", outcome, "error", err)
	}
}
