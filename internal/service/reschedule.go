package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/notarypros/booking-service/internal/dto"
	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/outbox"
	"github.com/notarypros/booking-service/internal/payments"
)

const maxSuggestedTimes = 6

// Start hours offered when a customer asks for alternatives.
var suggestedHours = []int{9, 14}

type RescheduleResult struct {
	Booking            *models.Booking
	OriginalDateTime   time.Time
	Fee                decimal.Decimal
	HoursUntilOriginal int
	Payment            *PaymentInfo
	Warnings           []string
}

type ReschedulePreview struct {
	CanReschedule  bool
	Reasons        []string
	Fee            decimal.Decimal
	CurrentStatus  models.BookingStatus
	CurrentTime    time.Time
	SuggestedTimes []time.Time
}

// rescheduleFee applies when the change arrives inside the notice window
// before the original appointment.
func (s *bookingService) rescheduleFee(original, now time.Time) decimal.Decimal {
	until := original.Sub(now)
	if until > 0 && until < s.Settings.RescheduleNotice {
		return s.Settings.RescheduleFee
	}
	return decimal.Zero
}

func (s *bookingService) Reschedule(ctx context.Context, req dto.RescheduleRequest) (*RescheduleResult, error) {
	if fields := s.Validator.Fields(req); len(fields) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, fields[0].Message)
	}
	id, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: bookingId must be a UUID", ErrValidation)
	}
	newTime, err := time.Parse(time.RFC3339, req.NewDateTime)
	if err != nil {
		return nil, fmt.Errorf("%w: newDateTime must be an ISO-8601 date and time", ErrValidation)
	}
	now := s.Now()
	if !newTime.After(now) {
		return nil, ErrInvalidNewTime
	}
	newTime = newTime.UTC()

	var (
		booking  *models.Booking
		original time.Time
		fee      decimal.Decimal
		payment  *models.Payment
	)
	err = s.Tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		// 1. Lock the booking
		b, err := s.Bookings.FindByIDForUpdate(ctx, tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}
		if b.Status.IsTerminal() {
			return ErrBookingNotReschedulable
		}

		// 2. Slot must be free
		taken, err := s.Bookings.ExistsActiveAt(ctx, tx, newTime, b.ID)
		if err != nil {
			return fmt.Errorf("check slot: %w", err)
		}
		if taken {
			return ErrSlotUnavailable
		}

		// 3. Fee and audit note
		original = b.ScheduledDateTime
		fee = s.rescheduleFee(original, now)
		b.ScheduledDateTime = newTime
		if addr := strings.TrimSpace(req.NewAddress); addr != "" {
			b.AddressStreet = addr
		}
		b.Notes = appendNote(b.Notes, now, rescheduleNote(original, newTime, req, fee))

		if fee.IsPositive() {
			b.RescheduleFees = b.RescheduleFees.Add(fee)
			b.PriceAtBooking = b.PriceAtBooking.Add(fee)
			if b.Status == models.StatusConfirmed || b.Status == models.StatusScheduled {
				b.Status = models.StatusPaymentPending
			}
			payment = &models.Payment{
				ID:             uuid.New(),
				BookingID:      b.ID,
				Purpose:        models.PurposeReschedule,
				Provider:       paymentProvider,
				Amount:         fee,
				Currency:       s.Settings.Currency,
				Status:         models.PaymentPending,
				RefundedAmount: decimal.Zero,
			}
			if err := s.Payments.Create(ctx, tx, payment); err != nil {
				return fmt.Errorf("create reschedule payment: %w", err)
			}
		}

		if err := s.Bookings.Save(ctx, tx, b); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlotUnavailable
			}
			return fmt.Errorf("save booking: %w", err)
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("booking rescheduled",
		"booking_id", booking.ID,
		"from", original,
		"to", newTime,
		"fee", fee.StringFixed(2),
		"requested_by", req.RequestedBy,
	)

	res := &RescheduleResult{
		Booking:            booking,
		OriginalDateTime:   original,
		Fee:                fee,
		HoursUntilOriginal: int(original.Sub(now).Hours()),
	}
	if payment != nil {
		res.Payment = &PaymentInfo{Amount: payment.Amount, Required: true}
	}

	var tasks []outbox.Task
	if payment != nil && s.Processor != nil {
		tasks = append(tasks, s.intentTask(booking, payment, func(intent *payments.Intent) {
			res.Payment.ClientSecret = intent.ClientSecret
		}))
	}
	if s.CRM != nil {
		tags := []string{"action:booking_rescheduled", "rescheduled:by_" + req.RequestedBy}
		if fee.IsPositive() {
			tags = append(tags, "reschedule:short_notice", "fees:reschedule_fee_applied")
		} else {
			tags = append(tags, "reschedule:advance_notice")
		}
		tasks = append(tasks, s.crmTask(booking, tags, nil))
	}
	if s.Publisher != nil {
		tasks = append(tasks, s.publishTask(RouteBookingRescheduled, newBookingEvent(booking, "", now)))
	}
	for _, o := range outbox.Failed(s.Runner.Run(ctx, tasks...)) {
		res.Warnings = append(res.Warnings, warningFor(o.Task))
	}
	return res, nil
}

// PreviewReschedule reports whether a booking can move, and to when, without
// changing anything.
func (s *bookingService) PreviewReschedule(ctx context.Context, bookingID uuid.UUID, proposed *time.Time) (*ReschedulePreview, error) {
	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	preview := &ReschedulePreview{
		Reasons:       []string{},
		Fee:           s.rescheduleFee(b.ScheduledDateTime, now),
		CurrentStatus: b.Status,
		CurrentTime:   b.ScheduledDateTime,
	}
	if b.Status.IsTerminal() {
		preview.Reasons = append(preview.Reasons, ErrBookingNotReschedulable.Error())
	}

	if proposed != nil {
		if !proposed.After(now) {
			preview.Reasons = append(preview.Reasons, ErrInvalidNewTime.Error())
		}
		taken, err := s.Bookings.ExistsActiveAt(ctx, nil, proposed.UTC(), b.ID)
		if err != nil {
			return nil, fmt.Errorf("check slot: %w", err)
		}
		if taken {
			preview.Reasons = append(preview.Reasons, ErrSlotUnavailable.Error())
		}
	} else if !b.Status.IsTerminal() {
		slots, err := s.suggestTimes(ctx, b.ID, now)
		if err != nil {
			return nil, err
		}
		preview.SuggestedTimes = slots
	}

	preview.CanReschedule = len(preview.Reasons) == 0
	return preview, nil
}

// suggestTimes walks forward from tomorrow over weekdays, offering each
// standard start hour that no active booking holds.
func (s *bookingService) suggestTimes(ctx context.Context, exclude uuid.UUID, now time.Time) ([]time.Time, error) {
	var slots []time.Time
	local := now.In(s.Settings.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.Settings.Location)
	for i := 1; i <= 14 && len(slots) < maxSuggestedTimes; i++ {
		d := day.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		for _, h := range suggestedHours {
			slot := time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, s.Settings.Location).UTC()
			taken, err := s.Bookings.ExistsActiveAt(ctx, nil, slot, exclude)
			if err != nil {
				return nil, fmt.Errorf("check slot: %w", err)
			}
			if !taken {
				slots = append(slots, slot)
			}
			if len(slots) == maxSuggestedTimes {
				break
			}
		}
	}
	return slots, nil
}

func rescheduleNote(from, to time.Time, req dto.RescheduleRequest, fee decimal.Decimal) string {
	note := fmt.Sprintf("Rescheduled from %s to %s by %s.", from.Format(time.RFC3339), to.Format(time.RFC3339), req.RequestedBy)
	if r := strings.TrimSpace(req.Reason); r != "" {
		note += " Reason: " + r + "."
	}
	if addr := strings.TrimSpace(req.NewAddress); addr != "" {
		note += " New address: " + addr + "."
	}
	if fee.IsPositive() {
		note += " Reschedule fee: $" + fee.StringFixed(2) + "."
	}
	return note
}

// appendNote adds a timestamped line to the booking's running notes.
func appendNote(notes string, at time.Time, line string) string {
	entry := "[" + at.UTC().Format(time.RFC3339) + "] " + line
	if notes == "" {
		return entry
	}
	return notes + "\n" + entry
}
