package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

type PromoCode struct {
	ID                 uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Code               string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Description        string              `json:"description,omitempty"`
	DiscountType       DiscountType        `gorm:"type:varchar(20);not null" json:"discountType"`
	DiscountValue      decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"discountValue"`
	MinimumAmount      decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"minimumAmount"`
	MaxDiscountAmount  decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"maxDiscountAmount"`
	UsageLimit         *int                `json:"usageLimit,omitempty"`
	UsageCount         int                 `gorm:"not null;default:0" json:"usageCount"`
	PerCustomerLimit   *int                `json:"perCustomerLimit,omitempty"`
	ValidFrom          time.Time           `gorm:"not null" json:"validFrom"`
	ValidUntil         *time.Time          `json:"validUntil,omitempty"`
	ApplicableServices []string            `gorm:"type:jsonb;serializer:json" json:"applicableServices"`
	Active             bool                `gorm:"not null;index" json:"active"`
	CreatedBy          string              `json:"createdBy,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

func (p *PromoCode) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Code = NormalizeCode(p.Code)
	return nil
}

// AppliesTo reports whether the promo can be used for the given service. An
// empty list means every service.
func (p *PromoCode) AppliesTo(serviceID string) bool {
	if len(p.ApplicableServices) == 0 {
		return true
	}
	for _, id := range p.ApplicableServices {
		if id == serviceID {
			return true
		}
	}
	return false
}

// NormalizeCode is the canonical form codes are stored and looked up in.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromoCodeUsage records one redemption. Counting rows per email enforces the
// per-customer limit.
type PromoCodeUsage struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PromoCodeID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_promo_usage_customer,priority:1" json:"promoCodeId"`
	CustomerEmail  string          `gorm:"not null;index:idx_promo_usage_customer,priority:2" json:"customerEmail"`
	BookingID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"bookingId"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"discountAmount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func (u *PromoCodeUsage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CustomerEmail = strings.ToLower(strings.TrimSpace(u.CustomerEmail))
	return nil
}
