package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentCompleted         PaymentStatus = "COMPLETED"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

type PaymentPurpose string

const (
	PurposeBooking    PaymentPurpose = "BOOKING"
	PurposeReschedule PaymentPurpose = "RESCHEDULE_FEE"
)

type Payment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"bookingId"`
	Purpose           PaymentPurpose  `gorm:"type:varchar(32);not null" json:"purpose"`
	Provider          string          `gorm:"type:varchar(32);not null" json:"provider"`
	ProviderPaymentID *string         `gorm:"uniqueIndex" json:"providerPaymentId,omitempty"`
	Amount            decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency          string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status            PaymentStatus   `gorm:"type:varchar(32);not null;index" json:"status"`
	RefundedAmount    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"refundedAmount"`
	RefundedAt        *time.Time      `json:"refundedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Refundable is the captured amount not yet returned.
func (p *Payment) Refundable() decimal.Decimal {
	if p.Status != PaymentCompleted && p.Status != PaymentPartiallyRefunded {
		return decimal.Zero
	}
	return p.Amount.Sub(p.RefundedAmount)
}
