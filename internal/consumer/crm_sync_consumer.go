package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/notarypros/booking-service/internal/metrics"
	"github.com/notarypros/booking-service/internal/service"
	"github.com/notarypros/booking-service/pkg/logging"
)

const defaultRetryDelay = 2 * time.Second

type CRMSyncer interface {
	SyncCRM(ctx context.Context, bookingID uuid.UUID, tags []string) error
}

// CRMSyncConsumer retries CRM pushes that failed after a booking committed.
// Each failure is republished with the attempt count raised until maxAttempts.
type CRMSyncConsumer struct {
	bookings    CRMSyncer
	publisher   service.EventPublisher
	maxAttempts int
	retryDelay  time.Duration
	logger      *logging.Logger
	metrics     *metrics.BookingMetrics
}

func NewCRMSyncConsumer(bookings CRMSyncer, publisher service.EventPublisher, maxAttempts int, logger *logging.Logger, m *metrics.BookingMetrics) *CRMSyncConsumer {
	if logger == nil {
		logger = logging.Default()
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &CRMSyncConsumer{
		bookings:    bookings,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		retryDelay:  defaultRetryDelay,
		logger:      logger.With("consumer", "crm-sync"),
		metrics:     m,
	}
}

func (cs *CRMSyncConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	start(ctx, msgs, cs, cs.logger, cs.metrics)
}

func (cs *CRMSyncConsumer) name() string { return "crm-sync" }

func (cs *CRMSyncConsumer) handle(ctx context.Context, msg amqp.Delivery) Outcome {
	var in service.CRMSyncMessage
	if err := json.Unmarshal(msg.Body, &in); err != nil {
		cs.logger.Error("failed to unmarshal", "error", err)
		return Drop
	}

	// Linear backoff; the broker has no delayed delivery here.
	if wait := time.Duration(in.Attempt) * cs.retryDelay; wait > 0 {
		select {
		case <-ctx.Done():
			return Requeue
		case <-time.After(wait):
		}
	}

	err := cs.bookings.SyncCRM(ctx, in.BookingID, in.Tags)
	switch {
	case err == nil:
		cs.logger.Info("crm sync succeeded", "booking_id", in.BookingID, "attempt", in.Attempt)
		return Ack
	case errors.Is(err, service.ErrBookingNotFound):
		cs.logger.Warn("crm sync for unknown booking", "booking_id", in.BookingID)
		return Drop
	}

	if in.Attempt >= cs.maxAttempts {
		cs.logger.Error("crm sync gave up", "booking_id", in.BookingID, "attempts", in.Attempt, "error", err)
		return Drop
	}

	next := service.CRMSyncMessage{BookingID: in.BookingID, Attempt: in.Attempt + 1, Tags: in.Tags}
	if perr := cs.publisher.Publish(service.RouteCRMSync, next); perr != nil {
		cs.logger.Error("failed to queue crm retry", "booking_id", in.BookingID, "error", perr)
		return Requeue
	}
	cs.logger.Warn("crm sync failed, retry queued", "booking_id", in.BookingID, "attempt", in.Attempt, "error", err)
	return Ack
}
