// Package pricing computes booking prices: base rate, travel, urgency and
// document fees, first-time and promo discounts, and the deposit rule.
package pricing

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidServiceType     = errors.New("pricing: invalid service type")
	ErrServiceAreaUnavailable = errors.New("pricing: service area unavailable")
)

type Urgency string

const (
	UrgencyStandard  Urgency = "STANDARD"
	UrgencyRush      Urgency = "RUSH"
	UrgencyEmergency Urgency = "EMERGENCY"
)

type Category string

const (
	CategoryBase     Category = "base"
	CategoryTravel   Category = "travel"
	CategoryUrgency  Category = "urgency"
	CategoryDocument Category = "document"
	CategoryDiscount Category = "discount"
	CategoryDeposit  Category = "deposit"
)

// Location is a customer-supplied address. Only ZIP is required for a lookup.
type Location struct {
	Street    string   `json:"street,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Zip       string   `json:"zip,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Address renders the location as a single geocodable line.
func (l Location) Address() string {
	var parts []string
	for _, p := range []string{l.Street, l.City, strings.TrimSpace(l.State + " " + l.Zip)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// AreaInfo is the service-area collaborator's answer for one location.
type AreaInfo struct {
	IsWithinArea  bool            `json:"isWithinArea"`
	DistanceMiles float64         `json:"distanceMiles"`
	TravelFee     decimal.Decimal `json:"travelFee"`
}

type ServiceAreaResolver interface {
	Resolve(ctx context.Context, loc Location) (AreaInfo, error)
}

// PromoDecision is the promo validator's verdict. Reason is set when Valid is false.
type PromoDecision struct {
	Valid          bool
	Reason         string
	DiscountAmount decimal.Decimal
	PromoCodeID    uuid.UUID
	Code           string
}

type PromoValidator interface {
	Validate(ctx context.Context, code, customerEmail, serviceID string, subtotal decimal.Decimal) (PromoDecision, error)
}

// CatalogTerms are the per-service terms stored on the offering row. Zero
// values fall back to the engine Config.
type CatalogTerms struct {
	BasePrice       decimal.Decimal
	RequiresDeposit bool
	DepositAmount   decimal.Decimal
	DepositPercent  decimal.Decimal // 0-100
}

type Modifiers struct {
	Urgency           Urgency
	DocumentCount     int
	PromoCode         string
	FirstTimeCustomer bool
	CustomerEmail     string
	ServiceID         string
	Catalog           *CatalogTerms
}

type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`
}

// Result is a computed price. It is never persisted as is; bookings copy the
// fields they need.
type Result struct {
	ServiceType       string          `json:"serviceType"`
	BasePrice         decimal.Decimal `json:"basePrice"`
	TravelFee         decimal.Decimal `json:"travelFee"`
	UrgencyFee        decimal.Decimal `json:"urgencyFee"`
	DocumentFee       decimal.Decimal `json:"documentFee"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	FirstTimeDiscount decimal.Decimal `json:"firstTimeDiscount"`
	PromoDiscount     decimal.Decimal `json:"promoDiscount"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	DepositRequired   bool            `json:"depositRequired"`
	DepositAmount     decimal.Decimal `json:"depositAmount"`
	Breakdown         []LineItem      `json:"breakdown"`

	AppliedPromoCode string     `json:"appliedPromoCode,omitempty"`
	PromoCodeID      *uuid.UUID `json:"promoCodeId,omitempty"`
	PromoRejection   string     `json:"promoRejection,omitempty"`
	ServiceArea      *AreaInfo  `json:"serviceArea,omitempty"`
}

// ToCents converts a currency amount to integer minor units.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents converts integer minor units back to a currency amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
