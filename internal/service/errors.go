package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the transport layer.
type Kind string

const (
	KindValidation   Kind = "validation_failed"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindUpstream     Kind = "upstream_unavailable"
	KindInternal     Kind = "internal"
)

var (
	ErrValidation              = errors.New("validation failed")
	ErrServiceUnavailable      = errors.New("service not found or inactive")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrUnknownUser             = errors.New("unknown user")
	ErrPricingUnavailable      = errors.New("pricing unavailable")
	ErrPromoRejected           = errors.New("promo code rejected")
	ErrPromoNotFound           = errors.New("promo code not found")
	ErrPromoCodeExists         = errors.New("promo code already exists")
	ErrInvalidPromo            = errors.New("invalid promo code definition")
	ErrBookingNotReschedulable = errors.New("booking cannot be rescheduled in its current status")
	ErrInvalidNewTime          = errors.New("new appointment time must be in the future")
	ErrSlotUnavailable         = errors.New("this time is no longer available")
	ErrBookingNotCancellable   = errors.New("booking cannot be cancelled in its current status")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrPaymentNotFound         = errors.New("payment not found")
)

// PromoRejectedError carries the machine-readable reason a promo failed at
// redemption time.
type PromoRejectedError struct {
	Code   string
	Reason string
}

func (e *PromoRejectedError) Error() string {
	return fmt.Sprintf("promo code %s rejected: %s", e.Code, e.Reason)
}

func (e *PromoRejectedError) Is(target error) bool {
	return target == ErrPromoRejected
}

// KindOf maps an error to its kind. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidNewTime), errors.Is(err, ErrInvalidPromo):
		return KindValidation
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrBookingNotFound),
		errors.Is(err, ErrPromoNotFound), errors.Is(err, ErrPaymentNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnknownUser):
		return KindUnauthorized
	case errors.Is(err, ErrPromoRejected), errors.Is(err, ErrPromoCodeExists),
		errors.Is(err, ErrBookingNotReschedulable), errors.Is(err, ErrSlotUnavailable),
		errors.Is(err, ErrBookingNotCancellable), errors.Is(err, ErrInvalidTransition):
		return KindConflict
	case errors.Is(err, ErrPricingUnavailable):
		return KindUpstream
	default:
		return KindInternal
	}
}

// PublicMessage is the text shown to a customer for err. Internal failures
// never leak their cause.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrPromoRejected):
		return "This promo code can't be used"
	case errors.Is(err, ErrPricingUnavailable):
		return "We couldn't price this booking right now. Please contact us for a quote."
	case errors.Is(err, ErrServiceUnavailable):
		return "The selected service is not available"
	}
	if KindOf(err) == KindInternal {
		return "Something went wrong while saving your booking. Please try again."
	}
	return err.Error()
}
