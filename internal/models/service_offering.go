package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceOffering is the catalog entry a booking points at. The rows are
// owned by the admin side and synced in over RabbitMQ.
type ServiceOffering struct {
	ID                string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name              string          `gorm:"not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description,omitempty"`
	ServiceType       string          `gorm:"type:varchar(64);not null;index" json:"serviceType"`
	BasePrice         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"basePrice"`
	DurationMinutes   int             `gorm:"not null;default:60" json:"durationMinutes"`
	RequiresDeposit   bool            `gorm:"not null" json:"requiresDeposit"`
	DepositAmount     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"depositAmount"`
	DepositPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"depositPercentage"`
	Active            bool            `gorm:"not null;index" json:"active"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}
