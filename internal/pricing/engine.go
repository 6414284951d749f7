package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/notarypros/booking-service/internal/metrics"
	"github.com/notarypros/booking-service/pkg/logging"
	"github.com/shopspring/decimal"
)

const promoLookupFailed = "lookup_failed"

// Engine prices a booking. It keeps no state between calls; every answer
// depends only on its inputs and what the collaborators report at call time.
type Engine struct {
	cfg     Config
	area    ServiceAreaResolver
	promos  PromoValidator
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

// NewEngine builds an engine. area and promos may be nil: a nil area resolver
// prices every location without travel, a nil promo validator ignores codes.
func NewEngine(cfg Config, area ServiceAreaResolver, promos PromoValidator, logger *logging.Logger, m *metrics.BookingMetrics) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{cfg: cfg, area: area, promos: promos, logger: logger, metrics: m}
}

// Calculate prices serviceType at loc. A nil loc means no travel (office or
// remote appointments). Only ErrInvalidServiceType and
// ErrServiceAreaUnavailable are returned; promo problems never fail pricing.
func (e *Engine) Calculate(ctx context.Context, serviceType string, loc *Location, mods Modifiers) (*Result, error) {
	base, ok := e.cfg.baseRate(serviceType)
	if c := mods.Catalog; c != nil && c.BasePrice.IsPositive() {
		base, ok = c.BasePrice.Round(2), true
	}
	if !ok {
		e.metrics.ObservePricing("invalid_service_type")
		return nil, fmt.Errorf("%w: %q", ErrInvalidServiceType, serviceType)
	}

	res := &Result{
		ServiceType: strings.ToUpper(strings.TrimSpace(serviceType)),
		BasePrice:   base,
		TravelFee:   decimal.Zero,
	}

	if loc != nil && e.area != nil {
		info, err := e.area.Resolve(ctx, *loc)
		if err != nil {
			e.metrics.ObservePricing("service_area_unavailable")
			return nil, fmt.Errorf("%w: %v", ErrServiceAreaUnavailable, err)
		}
		res.ServiceArea = &info
		if info.IsWithinArea && info.TravelFee.IsPositive() {
			res.TravelFee = info.TravelFee.Round(2)
		}
	}

	res.UrgencyFee = e.urgencyFee(base, mods.Urgency)
	res.DocumentFee = e.documentFee(mods.DocumentCount)
	res.Subtotal = base.Add(res.TravelFee).Add(res.UrgencyFee).Add(res.DocumentFee)

	e.applyDiscounts(ctx, res, mods)

	res.TotalPrice = decimal.Max(decimal.Zero, res.Subtotal.Sub(res.DiscountAmount)).Round(2)

	e.applyDeposit(res, mods.Catalog)

	res.Breakdown = e.breakdown(res, mods)
	e.metrics.ObservePricing("ok")
	return res, nil
}

// applyDeposit requires a deposit above the threshold, or whenever the catalog
// entry demands one. The amount never exceeds the total.
func (e *Engine) applyDeposit(res *Result, c *CatalogTerms) {
	floor, rate := e.cfg.MinimumDeposit, e.cfg.DepositPercentage
	forced := false
	if c != nil {
		forced = c.RequiresDeposit
		if c.DepositAmount.IsPositive() {
			floor = c.DepositAmount
		}
		if c.DepositPercent.IsPositive() {
			rate = c.DepositPercent.Div(decimal.NewFromInt(100))
		}
	}

	res.DepositAmount = decimal.Zero
	if !res.TotalPrice.IsPositive() || !(forced || res.TotalPrice.GreaterThan(e.cfg.DepositThreshold)) {
		return
	}
	res.DepositRequired = true
	res.DepositAmount = decimal.Min(res.TotalPrice, decimal.Max(floor, res.TotalPrice.Mul(rate))).Round(2)
}

func (e *Engine) urgencyFee(base decimal.Decimal, u Urgency) decimal.Decimal {
	switch Urgency(strings.ToUpper(string(u))) {
	case UrgencyRush:
		return base.Mul(e.cfg.RushSurcharge).Round(0)
	case UrgencyEmergency:
		return base.Mul(e.cfg.EmergencySurcharge).Round(0)
	default:
		return decimal.Zero
	}
}

func (e *Engine) documentFee(count int) decimal.Decimal {
	extra := count - e.cfg.IncludedDocuments
	if extra <= 0 {
		return decimal.Zero
	}
	return e.cfg.ExtraDocumentFee.Mul(decimal.NewFromInt(int64(extra)))
}

// applyDiscounts stacks the first-time and promo discounts, then caps the sum
// at the subtotal. The promo share absorbs any capping.
func (e *Engine) applyDiscounts(ctx context.Context, res *Result, mods Modifiers) {
	res.FirstTimeDiscount = decimal.Zero
	res.PromoDiscount = decimal.Zero

	if mods.FirstTimeCustomer {
		res.FirstTimeDiscount = decimal.Min(res.Subtotal, res.Subtotal.Mul(e.cfg.FirstTimeDiscountRate).Round(2))
	}

	if code := strings.TrimSpace(mods.PromoCode); code != "" && e.promos != nil {
		decision, err := e.promos.Validate(ctx, code, mods.CustomerEmail, mods.ServiceID, res.Subtotal)
		switch {
		case err != nil:
			e.logger.Warn("promo validation failed, pricing without promo", "code", code, "error", err)
			res.PromoRejection = promoLookupFailed
		case !decision.Valid:
			res.PromoRejection = decision.Reason
		default:
			res.PromoDiscount = decision.DiscountAmount.Round(2)
			res.AppliedPromoCode = decision.Code
			id := decision.PromoCodeID
			res.PromoCodeID = &id
		}
	}

	if room := res.Subtotal.Sub(res.FirstTimeDiscount); res.PromoDiscount.GreaterThan(room) {
		res.PromoDiscount = room
	}
	res.DiscountAmount = res.FirstTimeDiscount.Add(res.PromoDiscount)
}

func (e *Engine) breakdown(res *Result, mods Modifiers) []LineItem {
	items := []LineItem{{Description: "Base service fee", Amount: res.BasePrice, Category: CategoryBase}}

	if res.TravelFee.IsPositive() {
		desc := "Travel fee"
		if res.ServiceArea != nil {
			desc = fmt.Sprintf("Travel fee (%.1f miles)", res.ServiceArea.DistanceMiles)
		}
		items = append(items, LineItem{Description: desc, Amount: res.TravelFee, Category: CategoryTravel})
	}
	if res.UrgencyFee.IsPositive() {
		desc := "Rush service fee"
		if Urgency(strings.ToUpper(string(mods.Urgency))) == UrgencyEmergency {
			desc = "Emergency service fee"
		}
		items = append(items, LineItem{Description: desc, Amount: res.UrgencyFee, Category: CategoryUrgency})
	}
	if res.DocumentFee.IsPositive() {
		extra := mods.DocumentCount - e.cfg.IncludedDocuments
		items = append(items, LineItem{
			Description: fmt.Sprintf("Additional documents (%d x $%s)", extra, e.cfg.ExtraDocumentFee.StringFixed(2)),
			Amount:      res.DocumentFee,
			Category:    CategoryDocument,
		})
	}
	if res.DiscountAmount.IsPositive() {
		var applied []string
		if res.FirstTimeDiscount.IsPositive() {
			applied = append(applied, "first-time customer")
		}
		if res.PromoDiscount.IsPositive() {
			applied = append(applied, "promo "+res.AppliedPromoCode)
		}
		items = append(items, LineItem{
			Description: "Discount (" + strings.Join(applied, ", ") + ")",
			Amount:      res.DiscountAmount.Neg(),
			Category:    CategoryDiscount,
		})
	}
	if res.DepositRequired && res.DepositAmount.IsPositive() {
		items = append(items, LineItem{Description: "Required deposit", Amount: res.DepositAmount, Category: CategoryDeposit})
	}
	return items
}
