package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/notarypros/booking-service/internal/crm"
	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/payments"
	"github.com/notarypros/booking-service/internal/pricing"
)

type Pricer interface {
	Calculate(ctx context.Context, serviceType string, loc *pricing.Location, mods pricing.Modifiers) (*pricing.Result, error)
}

type CRMClient interface {
	UpsertContact(ctx context.Context, contact crm.Contact) (crm.ContactRef, error)
	AddTags(ctx context.Context, contactID string, tags []string) error
	UpdateCustomFields(ctx context.Context, contactID string, fields map[string]string) error
}

type PaymentProcessor interface {
	CreatePaymentIntent(ctx context.Context, params payments.IntentParams) (*payments.Intent, error)
	CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, idempotencyKey string) (*payments.Refund, error)
}

type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// Routing keys on the bookings exchange.
const (
	RouteBookingCreated       = "booking.created"
	RouteBookingRescheduled   = "booking.rescheduled"
	RouteBookingCancelled     = "booking.cancelled"
	RouteBookingStatusChanged = "booking.status_changed"
	RouteCRMSync              = "booking.sync.crm"
)

// BookingEvent is the payload published for booking lifecycle changes.
type BookingEvent struct {
	BookingID         uuid.UUID            `json:"bookingId"`
	ServiceID         string               `json:"serviceId"`
	Status            models.BookingStatus `json:"status"`
	PreviousStatus    models.BookingStatus `json:"previousStatus,omitempty"`
	ScheduledDateTime time.Time            `json:"scheduledDateTime"`
	CustomerEmail     string               `json:"customerEmail"`
	PriceAtBooking    float64              `json:"priceAtBooking"`
	OccurredAt        time.Time            `json:"occurredAt"`
}

// CRMSyncMessage asks the CRM sync consumer to push a booking again.
type CRMSyncMessage struct {
	BookingID uuid.UUID `json:"bookingId"`
	Attempt   int       `json:"attempt"`
	Tags      []string  `json:"tags,omitempty"`
}

func newBookingEvent(b *models.Booking, previous models.BookingStatus, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:         b.ID,
		ServiceID:         b.ServiceID,
		Status:            b.Status,
		PreviousStatus:    previous,
		ScheduledDateTime: b.ScheduledDateTime,
		CustomerEmail:     b.CustomerEmail,
		PriceAtBooking:    b.PriceAtBooking.Round(2).InexactFloat64(),
		OccurredAt:        at,
	}
}
