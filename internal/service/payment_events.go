package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/payments"
)

// HandlePaymentEvent applies a verified Stripe webhook. Replays of an event
// already applied are a no-op.
func (s *bookingService) HandlePaymentEvent(ctx context.Context, event *payments.Event) error {
	var status models.PaymentStatus
	switch event.Type {
	case payments.EventPaymentSucceeded:
		status = models.PaymentCompleted
	case payments.EventPaymentFailed:
		status = models.PaymentFailed
	default:
		s.Logger.Debug("ignoring payment event", "type", event.Type, "event_id", event.ID)
		return nil
	}
	intentID := event.Data.Object.ID

	var (
		booking  *models.Booking
		previous models.BookingStatus
	)
	err := s.Tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		p, err := s.Payments.FindByProviderIDForUpdate(ctx, tx, intentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if p.Status == status || p.Status == models.PaymentRefunded || p.Status == models.PaymentPartiallyRefunded {
			return nil
		}
		p.Status = status
		if err := s.Payments.Save(ctx, tx, p); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		b, err := s.Bookings.FindByIDForUpdate(ctx, tx, p.BookingID)
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}
		if p.Purpose == models.PurposeBooking {
			b.DepositStatus = status
		}
		previous = b.Status
		if status == models.PaymentCompleted && b.Status == models.StatusPaymentPending {
			all, err := s.Payments.FindByBooking(ctx, tx, b.ID)
			if err != nil {
				return fmt.Errorf("load payments: %w", err)
			}
			if !hasOtherPending(all, p) {
				b.Status = models.StatusConfirmed
			}
		}
		if err := s.Bookings.Save(ctx, tx, b); err != nil {
			return fmt.Errorf("save booking: %w", err)
		}
		booking = b
		return nil
	})
	if err != nil {
		return err
	}
	if booking == nil {
		s.Logger.Debug("payment event already applied", "event_id", event.ID, "intent_id", intentID)
		return nil
	}

	s.Logger.Info("payment event applied",
		"event_id", event.ID,
		"booking_id", booking.ID,
		"payment_status", status,
		"booking_status", booking.Status,
	)
	if booking.Status != previous {
		s.afterStatusChange(ctx, booking, previous)
	}
	return nil
}

func hasOtherPending(all []models.Payment, current *models.Payment) bool {
	for _, p := range all {
		if p.ID != current.ID && p.Status == models.PaymentPending {
			return true
		}
	}
	return false
}
