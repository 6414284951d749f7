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
	"github.com/notarypros/booking-service/internal/metrics"
	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/pricing"
	"github.com/notarypros/booking-service/internal/repository"
	"github.com/notarypros/booking-service/pkg/logging"
)

// Machine-readable rejection reasons.
const (
	ReasonNotFound       = "not_found"
	ReasonExpired        = "expired"
	ReasonInactive       = "inactive"
	ReasonNotYetValid    = "not_yet_valid"
	ReasonUsageExhausted = "usage_exhausted"
	ReasonCustomerLimit  = "customer_limit_reached"
	ReasonNotApplicable  = "not_applicable"
	ReasonMinimumNotMet  = "minimum_not_met"
)

const defaultPerCustomerLimit = 1

// Redemption is one applied promo to record against a booking.
type Redemption struct {
	PromoCodeID    uuid.UUID
	Code           string
	CustomerEmail  string
	ServiceID      string
	BookingID      uuid.UUID
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
}

type PromoService interface {
	pricing.PromoValidator
	Redeem(ctx context.Context, tx *gorm.DB, r Redemption) error
	Create(ctx context.Context, req dto.CreatePromoCodeRequest) (*models.PromoCode, error)
	List(ctx context.Context, filter repository.PromoFilter) ([]models.PromoCode, int64, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type promoService struct {
	promos  repository.PromoCodeRepository
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
	now     func() time.Time
}

func NewPromoService(promos repository.PromoCodeRepository, logger *logging.Logger, m *metrics.BookingMetrics) PromoService {
	if logger == nil {
		logger = logging.Default()
	}
	return &promoService{promos: promos, logger: logger, metrics: m, now: time.Now}
}

// Validate is the read-only check used while pricing. It never records usage.
func (s *promoService) Validate(ctx context.Context, code, customerEmail, serviceID string, subtotal decimal.Decimal) (pricing.PromoDecision, error) {
	promo, err := s.promos.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.metrics.ObservePromo(ReasonNotFound)
		return pricing.PromoDecision{Reason: ReasonNotFound, Code: models.NormalizeCode(code)}, nil
	}
	if err != nil {
		s.metrics.ObservePromo(promoLookupError)
		return pricing.PromoDecision{}, fmt.Errorf("find promo code: %w", err)
	}

	reason, err := s.check(ctx, nil, promo, customerEmail, serviceID, subtotal)
	if err != nil {
		s.metrics.ObservePromo(promoLookupError)
		return pricing.PromoDecision{}, err
	}
	if reason != "" {
		s.metrics.ObservePromo(reason)
		return pricing.PromoDecision{Reason: reason, Code: promo.Code, PromoCodeID: promo.ID}, nil
	}

	s.metrics.ObservePromo("valid")
	return pricing.PromoDecision{
		Valid:          true,
		DiscountAmount: Discount(promo, subtotal),
		PromoCodeID:    promo.ID,
		Code:           promo.Code,
	}, nil
}

const promoLookupError = "error"

// check returns the first failing reason, or "" when the promo applies.
func (s *promoService) check(ctx context.Context, tx *gorm.DB, p *models.PromoCode, email, serviceID string, subtotal decimal.Decimal) (string, error) {
	now := s.now()
	switch {
	case p.ValidUntil != nil && now.After(*p.ValidUntil):
		return ReasonExpired, nil
	case !p.Active:
		return ReasonInactive, nil
	case now.Before(p.ValidFrom):
		return ReasonNotYetValid, nil
	case p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit:
		return ReasonUsageExhausted, nil
	}

	if email = strings.TrimSpace(email); email != "" && p.PerCustomerLimit != nil {
		used, err := s.promos.CountCustomerUsage(ctx, tx, p.ID, email)
		if err != nil {
			return "", fmt.Errorf("count promo usage: %w", err)
		}
		if used >= int64(*p.PerCustomerLimit) {
			return ReasonCustomerLimit, nil
		}
	}

	if len(p.ApplicableServices) > 0 && (serviceID == "" || !p.AppliesTo(serviceID)) {
		return ReasonNotApplicable, nil
	}
	if p.MinimumAmount.Valid && subtotal.LessThan(p.MinimumAmount.Decimal) {
		return ReasonMinimumNotMet, nil
	}
	return "", nil
}

// Discount is the amount p takes off subtotal. It never exceeds the subtotal.
func Discount(p *models.PromoCode, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch p.DiscountType {
	case models.DiscountPercentage:
		amount = subtotal.Mul(p.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
		if p.MaxDiscountAmount.Valid && amount.GreaterThan(p.MaxDiscountAmount.Decimal) {
			amount = p.MaxDiscountAmount.Decimal
		}
	case models.DiscountFixedAmount:
		amount = p.DiscountValue
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// Redeem records usage of an applied promo inside the booking transaction.
// The promo row is locked and re-checked, then the counter is bumped with a
// conditional update so two bookings racing for the last use cannot both win.
func (s *promoService) Redeem(ctx context.Context, tx *gorm.DB, r Redemption) error {
	// 1. Lock the promo row
	promo, err := s.promos.FindByIDForUpdate(ctx, tx, r.PromoCodeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &PromoRejectedError{Code: r.Code, Reason: ReasonNotFound}
	}
	if err != nil {
		return fmt.Errorf("lock promo code: %w", err)
	}

	// 2. Re-check against committed state
	reason, err := s.check(ctx, tx, promo, r.CustomerEmail, r.ServiceID, r.Subtotal)
	if err != nil {
		return err
	}
	if reason != "" {
		s.metrics.ObservePromo("redeem_" + reason)
		return &PromoRejectedError{Code: promo.Code, Reason: reason}
	}

	// 3. Conditional increment
	ok, err := s.promos.IncrementUsage(ctx, tx, promo.ID)
	if err != nil {
		return fmt.Errorf("increment promo usage: %w", err)
	}
	if !ok {
		s.metrics.ObservePromo("redeem_" + ReasonUsageExhausted)
		return &PromoRejectedError{Code: promo.Code, Reason: ReasonUsageExhausted}
	}

	// 4. Usage row
	usage := &models.PromoCodeUsage{
		ID:             uuid.New(),
		PromoCodeID:    promo.ID,
		CustomerEmail:  strings.ToLower(strings.TrimSpace(r.CustomerEmail)),
		BookingID:      r.BookingID,
		DiscountAmount: r.DiscountAmount,
	}
	if err := s.promos.CreateUsage(ctx, tx, usage); err != nil {
		return fmt.Errorf("record promo usage: %w", err)
	}
	s.metrics.ObservePromo("redeemed")
	return nil
}

func (s *promoService) Create(ctx context.Context, req dto.CreatePromoCodeRequest) (*models.PromoCode, error) {
	promo := &models.PromoCode{
		ID:                 uuid.New(),
		Code:               models.NormalizeCode(req.Code),
		Description:        req.Description,
		DiscountType:       models.DiscountType(req.DiscountType),
		DiscountValue:      decimal.NewFromFloat(req.DiscountValue).Round(2),
		UsageLimit:         req.UsageLimit,
		PerCustomerLimit:   req.PerCustomerLimit,
		ApplicableServices: req.ApplicableServices,
		Active:             true,
		CreatedBy:          req.CreatedBy,
		ValidFrom:          s.now(),
	}
	if promo.DiscountType == models.DiscountPercentage && promo.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: percentage above 100", ErrInvalidPromo)
	}
	if req.MinimumAmount != nil {
		promo.MinimumAmount = decimal.NewNullDecimal(decimal.NewFromFloat(*req.MinimumAmount).Round(2))
	}
	if req.MaxDiscountAmount != nil {
		promo.MaxDiscountAmount = decimal.NewNullDecimal(decimal.NewFromFloat(*req.MaxDiscountAmount).Round(2))
	}
	if promo.PerCustomerLimit == nil {
		limit := defaultPerCustomerLimit
		promo.PerCustomerLimit = &limit
	}
	if req.ValidFrom != "" {
		t, err := time.Parse(time.RFC3339, req.ValidFrom)
		if err != nil {
			return nil, fmt.Errorf("%w: validFrom", ErrInvalidPromo)
		}
		promo.ValidFrom = t
	}
	if req.ValidUntil != "" {
		t, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil {
			return nil, fmt.Errorf("%w: validUntil", ErrInvalidPromo)
		}
		if !t.After(promo.ValidFrom) {
			return nil, fmt.Errorf("%w: validUntil must be after validFrom", ErrInvalidPromo)
		}
		promo.ValidUntil = &t
	}

	if err := s.promos.Create(ctx, promo); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPromoCodeExists
		}
		return nil, fmt.Errorf("create promo code: %w", err)
	}
	s.logger.Info("promo code created", "code", promo.Code, "type", promo.DiscountType, "created_by", promo.CreatedBy)
	return promo, nil
}

func (s *promoService) List(ctx context.Context, filter repository.PromoFilter) ([]models.PromoCode, int64, error) {
	return s.promos.List(ctx, filter)
}

func (s *promoService) Deactivate(ctx context.Context, id uuid.UUID) error {
	err := s.promos.Deactivate(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPromoNotFound
	}
	if err != nil {
		return fmt.Errorf("deactivate promo code: %w", err)
	}
	s.logger.Info("promo code deactivated", "promo_id", id)
	return nil
}
