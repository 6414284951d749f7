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
	"github.com/notarypros/booking-service/internal/pricing"
)

const refundWindow = 7 * 24 * time.Hour

var (
	flatLateFee        = decimal.NewFromInt(25)
	baseProcessingFee  = decimal.NewFromInt(5)
	earlyProcessingFee = decimal.NewFromInt(10)
	halfShare          = decimal.NewFromFloat(0.5)
	quarterShare       = decimal.NewFromFloat(0.25)
)

type RefundQuote struct {
	TotalPaid       decimal.Decimal
	CancellationFee decimal.Decimal
	ProcessingFee   decimal.Decimal
	NetRefund       decimal.Decimal
	RefundDeadline  time.Time
}

type CancelResult struct {
	Booking  *models.Booking
	Refund   RefundQuote
	Warnings []string
}

// QuoteRefund applies the cancellation policy to what the customer has paid.
// The closer the appointment, the larger the fee.
func QuoteRefund(scheduled time.Time, paid []models.Payment, now time.Time, waiveFee bool) RefundQuote {
	total := decimal.Zero
	for _, p := range paid {
		if p.Status == models.PaymentCompleted {
			total = total.Add(p.Amount)
		}
	}

	hours := scheduled.Sub(now).Hours()
	fee := decimal.Zero
	processing := baseProcessingFee
	switch {
	case hours < 2:
		fee = total
	case hours < 24:
		fee = total.Mul(halfShare)
	case hours < 48:
		fee = decimal.Min(flatLateFee, total.Mul(quarterShare))
	default:
		processing = earlyProcessingFee
	}
	if waiveFee {
		fee = decimal.Zero
	}
	fee = fee.Round(2)

	net := total.Sub(fee).Sub(processing)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return RefundQuote{
		TotalPaid:       total,
		CancellationFee: fee,
		ProcessingFee:   processing,
		NetRefund:       net,
		RefundDeadline:  now.Add(refundWindow),
	}
}

func (s *bookingService) CancelBooking(ctx context.Context, id uuid.UUID, req dto.CancelBookingRequest) (*CancelResult, error) {
	if fields := s.Validator.Fields(req); len(fields) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, fields[0].Message)
	}
	now := s.Now()
	byStaff := req.RequestedBy == "staff"

	var (
		booking  *models.Booking
		previous models.BookingStatus
		quote    RefundQuote
		paid     []models.Payment
	)
	err := s.Tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		b, err := s.Bookings.FindByIDForUpdate(ctx, tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}
		if b.Status.IsTerminal() {
			return ErrBookingNotCancellable
		}

		paid, err = s.Payments.FindByBooking(ctx, tx, b.ID)
		if err != nil {
			return fmt.Errorf("load payments: %w", err)
		}
		quote = QuoteRefund(b.ScheduledDateTime, paid, now, byStaff && req.WaiveFee)

		previous = b.Status
		if byStaff {
			b.Status = models.StatusCancelledByStaff
		} else {
			b.Status = models.StatusCancelledByClient
		}
		reason := strings.TrimSpace(req.Reason)
		b.CancelledAt = &now
		b.CancellationReason = reason
		if reason == "" {
			reason = "No reason provided"
		}
		b.Notes = appendNote(b.Notes, now, "Cancelled: "+reason)

		if err := s.Bookings.Save(ctx, tx, b); err != nil {
			return fmt.Errorf("save booking: %w", err)
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("booking cancelled",
		"booking_id", booking.ID,
		"by", req.RequestedBy,
		"paid", quote.TotalPaid.StringFixed(2),
		"net_refund", quote.NetRefund.StringFixed(2),
	)

	res := &CancelResult{Booking: booking, Refund: quote}
	var tasks []outbox.Task
	if quote.NetRefund.IsPositive() {
		if s.Processor != nil {
			tasks = append(tasks, s.refundTask(booking, paid, quote.NetRefund))
		} else {
			res.Warnings = append(res.Warnings, warningFor("refund"))
		}
	}
	if s.CRM != nil {
		tasks = append(tasks, s.crmTask(booking, []string{"status:booking_cancelled", "cancelled:by_" + req.RequestedBy}, nil))
	}
	if s.Publisher != nil {
		tasks = append(tasks, s.publishTask(RouteBookingCancelled, newBookingEvent(booking, previous, now)))
	}
	for _, o := range outbox.Failed(s.Runner.Run(ctx, tasks...)) {
		res.Warnings = append(res.Warnings, warningFor(o.Task))
	}
	return res, nil
}

// refundTask returns amount across the booking's captured payments, oldest
// first, and records what each one gave back.
func (s *bookingService) refundTask(b *models.Booking, paid []models.Payment, amount decimal.Decimal) outbox.Task {
	return outbox.Task{
		Name: "refund",
		Run: func(ctx context.Context) error {
			remaining := amount
			for i := range paid {
				p := &paid[i]
				if !remaining.IsPositive() {
					break
				}
				refundable := p.Refundable()
				if !refundable.IsPositive() || p.ProviderPaymentID == nil {
					continue
				}
				part := decimal.Min(refundable, remaining)
				if _, err := s.Processor.CreateRefund(ctx, *p.ProviderPaymentID, pricing.ToCents(part), "refund:"+p.ID.String()); err != nil {
					return fmt.Errorf("refund payment %s: %w", p.ID, err)
				}
				refundedAt := s.Now()
				p.RefundedAmount = p.RefundedAmount.Add(part)
				p.RefundedAt = &refundedAt
				if p.RefundedAmount.GreaterThanOrEqual(p.Amount) {
					p.Status = models.PaymentRefunded
				} else {
					p.Status = models.PaymentPartiallyRefunded
				}
				if err := s.Payments.Save(ctx, nil, p); err != nil {
					return fmt.Errorf("record refund: %w", err)
				}
				remaining = remaining.Sub(part)
			}
			if remaining.IsPositive() {
				s.Logger.Warn("refund not fully issued", "booking_id", b.ID, "outstanding", remaining.StringFixed(2))
			}
			return nil
		},
	}
}
