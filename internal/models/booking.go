package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	StatusPaymentPending    BookingStatus = "PAYMENT_PENDING"
	StatusConfirmed         BookingStatus = "CONFIRMED"
	StatusScheduled         BookingStatus = "SCHEDULED"
	StatusInProgress        BookingStatus = "IN_PROGRESS"
	StatusCompleted         BookingStatus = "COMPLETED"
	StatusCancelledByClient BookingStatus = "CANCELLED_BY_CLIENT"
	StatusCancelledByStaff  BookingStatus = "CANCELLED_BY_STAFF"
)

type LocationType string

const (
	LocationClientAddress LocationType = "CLIENT_SPECIFIED_ADDRESS"
	LocationOurOffice     LocationType = "OUR_OFFICE"
	LocationRemote        LocationType = "REMOTE_ONLINE_NOTARIZATION"
	LocationPublicPlace   LocationType = "PUBLIC_PLACE"
)

// Travels reports whether the notary drives to the signer for this location.
func (l LocationType) Travels() bool {
	return l == LocationClientAddress || l == LocationPublicPlace
}

type Booking struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceID         string        `gorm:"type:varchar(64);not null;index" json:"serviceId"`
	UserID            *uuid.UUID    `gorm:"type:uuid;index" json:"userId,omitempty"`
	ScheduledDateTime time.Time     `gorm:"not null;index" json:"scheduledDateTime"`
	Status            BookingStatus `gorm:"type:varchar(32);not null;index" json:"status"`

	CustomerName  string `gorm:"not null" json:"customerName"`
	CustomerEmail string `gorm:"not null;index" json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`

	LocationType    LocationType `gorm:"type:varchar(40);not null" json:"locationType"`
	AddressStreet   string       `json:"addressStreet,omitempty"`
	AddressCity     string       `json:"addressCity,omitempty"`
	AddressState    string       `json:"addressState,omitempty"`
	AddressZip      string       `json:"addressZip,omitempty"`
	LocationNotes   string       `gorm:"type:text" json:"locationNotes,omitempty"`
	NumberOfSigners int          `gorm:"not null;default:1" json:"numberOfSigners"`
	DocumentCount   int          `gorm:"not null;default:0" json:"documentCount"`
	Urgency         string       `gorm:"type:varchar(16);not null" json:"urgency"`

	// Price snapshot taken at creation. Later edits to rates or promos do not
	// touch these columns.
	BasePrice         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"basePrice"`
	TravelFee         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"travelFee"`
	UrgencyFee        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"urgencyFee"`
	DocumentFee       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"documentFee"`
	Subtotal          decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	FirstTimeDiscount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"firstTimeDiscount"`
	PromoCodeID       *uuid.UUID      `gorm:"type:uuid" json:"promoCodeId,omitempty"`
	PromoCode         string          `gorm:"type:varchar(64)" json:"promoCode,omitempty"`
	PromoDiscount     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"promoDiscount"`
	RescheduleFees    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"rescheduleFees"`
	PriceAtBooking    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"priceAtBooking"`

	DepositRequired bool            `gorm:"not null" json:"depositRequired"`
	DepositAmount   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"depositAmount"`
	DepositStatus   PaymentStatus   `gorm:"type:varchar(32);not null" json:"depositStatus"`

	Notes        string  `gorm:"type:text" json:"notes,omitempty"`
	Source       string  `gorm:"type:varchar(32)" json:"source,omitempty"`
	LeadSource   string  `json:"leadSource,omitempty"`
	CampaignName string  `json:"campaignName,omitempty"`
	ReferredBy   string  `json:"referredBy,omitempty"`
	CRMContactID *string `gorm:"column:crm_contact_id" json:"ghlContactId,omitempty"`

	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Service *ServiceOffering `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// AmountDue is what the customer is charged up front: the deposit when one is
// required, otherwise the full price.
func (b *Booking) AmountDue() decimal.Decimal {
	if b.DepositRequired {
		return b.DepositAmount
	}
	return b.PriceAtBooking
}

// AddressLine joins the street address parts, skipping blanks.
func (b *Booking) AddressLine() string {
	var parts []string
	for _, part := range []string{b.AddressStreet, b.AddressCity, strings.TrimSpace(b.AddressState + " " + b.AddressZip)} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}
