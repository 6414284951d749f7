package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/outbox"
)

// UpdateStatus moves a booking along its lifecycle. Only transitions in the
// model's table are allowed.
func (s *bookingService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.BookingStatus) (*models.Booking, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	now := s.Now()

	var (
		booking  *models.Booking
		previous models.BookingStatus
	)
	err := s.Tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		b, err := s.Bookings.FindByIDForUpdate(ctx, tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}
		if !models.CanTransition(b.Status, status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, status)
		}
		previous = b.Status
		b.Status = status
		if status.IsCancelled() {
			b.CancelledAt = &now
		}
		b.Notes = appendNote(b.Notes, now, fmt.Sprintf("Status changed from %s to %s.", previous, status))
		if err := s.Bookings.Save(ctx, tx, b); err != nil {
			return fmt.Errorf("save booking: %w", err)
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("booking status changed", "booking_id", booking.ID, "from", previous, "to", status)
	s.afterStatusChange(ctx, booking, previous)
	return booking, nil
}

func (s *bookingService) afterStatusChange(ctx context.Context, b *models.Booking, previous models.BookingStatus) {
	var tasks []outbox.Task
	if s.CRM != nil {
		tasks = append(tasks, s.crmTask(b, []string{statusTag(b.Status)}, nil))
	}
	if s.Publisher != nil {
		tasks = append(tasks, s.publishTask(RouteBookingStatusChanged, newBookingEvent(b, previous, s.Now())))
	}
	s.Runner.Run(ctx, tasks...)
}

func statusTag(status models.BookingStatus) string {
	return "status:booking_" + strings.ToLower(strings.ReplaceAll(string(status), "_", ""))
}
