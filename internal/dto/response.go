package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/pricing"
)

// Money renders a currency amount as a JSON number with two decimals.
func Money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

type BookingResponse struct {
	ID                string               `json:"id"`
	ServiceID         string               `json:"serviceId"`
	ServiceName       string               `json:"serviceName,omitempty"`
	Status            models.BookingStatus `json:"status"`
	ScheduledDateTime time.Time            `json:"scheduledDateTime"`
	CustomerName      string               `json:"customerName"`
	CustomerEmail     string               `json:"customerEmail"`
	LocationType      models.LocationType  `json:"locationType"`
	Address           string               `json:"address,omitempty"`
	Urgency           string               `json:"urgency"`
	DocumentCount     int                  `json:"documentCount"`
	BasePrice         float64              `json:"basePrice"`
	TravelFee         float64              `json:"travelFee"`
	UrgencyFee        float64              `json:"urgencyFee"`
	DocumentFee       float64              `json:"documentFee"`
	Discount          float64              `json:"discount"`
	PromoCode         string               `json:"promoCode,omitempty"`
	RescheduleFees    float64              `json:"rescheduleFees,omitempty"`
	PriceAtBooking    float64              `json:"priceAtBooking"`
	DepositRequired   bool                 `json:"depositRequired"`
	DepositAmount     float64              `json:"depositAmount"`
	DepositStatus     models.PaymentStatus `json:"depositStatus"`
	GHLContactID      string               `json:"ghlContactId,omitempty"`
	Notes             string               `json:"notes,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		ID:                b.ID.String(),
		ServiceID:         b.ServiceID,
		Status:            b.Status,
		ScheduledDateTime: b.ScheduledDateTime,
		CustomerName:      b.CustomerName,
		CustomerEmail:     b.CustomerEmail,
		LocationType:      b.LocationType,
		Address:           b.AddressLine(),
		Urgency:           b.Urgency,
		DocumentCount:     b.DocumentCount,
		BasePrice:         Money(b.BasePrice),
		TravelFee:         Money(b.TravelFee),
		UrgencyFee:        Money(b.UrgencyFee),
		DocumentFee:       Money(b.DocumentFee),
		Discount:          Money(b.FirstTimeDiscount.Add(b.PromoDiscount)),
		PromoCode:         b.PromoCode,
		RescheduleFees:    Money(b.RescheduleFees),
		PriceAtBooking:    Money(b.PriceAtBooking),
		DepositRequired:   b.DepositRequired,
		DepositAmount:     Money(b.DepositAmount),
		DepositStatus:     b.DepositStatus,
		Notes:             b.Notes,
		CreatedAt:         b.CreatedAt,
	}
	if b.Service != nil {
		resp.ServiceName = b.Service.Name
	}
	if b.CRMContactID != nil {
		resp.GHLContactID = *b.CRMContactID
	}
	return resp
}

type PaymentResponse struct {
	ClientSecret string  `json:"clientSecret,omitempty"`
	Amount       float64 `json:"amount"`
	Required     bool    `json:"required"`
}

type ContactResponse struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

type FieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type CreateBookingResponse struct {
	Success          bool                 `json:"success"`
	Booking          *BookingResponse     `json:"booking,omitempty"`
	Payment          *PaymentResponse     `json:"payment,omitempty"`
	GHLContact       *ContactResponse     `json:"ghlContact,omitempty"`
	Error            string               `json:"error,omitempty"`
	ValidationErrors []FieldErrorResponse `json:"validationErrors,omitempty"`
	Warnings         []string             `json:"warnings,omitempty"`
}

type LineItemResponse struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

type QuoteResponse struct {
	Success          bool               `json:"success"`
	ServiceType      string             `json:"serviceType"`
	BasePrice        float64            `json:"basePrice"`
	TravelFee        float64            `json:"travelFee"`
	UrgencyFee       float64            `json:"urgencyFee"`
	DocumentFee      float64            `json:"documentFee"`
	Subtotal         float64            `json:"subtotal"`
	DiscountAmount   float64            `json:"discountAmount"`
	TotalPrice       float64            `json:"totalPrice"`
	DepositRequired  bool               `json:"depositRequired"`
	DepositAmount    float64            `json:"depositAmount"`
	Breakdown        []LineItemResponse `json:"breakdown"`
	AppliedPromoCode string             `json:"appliedPromoCode,omitempty"`
	PromoRejection   string             `json:"promoRejection,omitempty"`
	DistanceMiles    *float64           `json:"distanceMiles,omitempty"`
	IsWithinArea     *bool              `json:"isWithinArea,omitempty"`
}

func ToQuoteResponse(r *pricing.Result) QuoteResponse {
	resp := QuoteResponse{
		Success:          true,
		ServiceType:      r.ServiceType,
		BasePrice:        Money(r.BasePrice),
		TravelFee:        Money(r.TravelFee),
		UrgencyFee:       Money(r.UrgencyFee),
		DocumentFee:      Money(r.DocumentFee),
		Subtotal:         Money(r.Subtotal),
		DiscountAmount:   Money(r.DiscountAmount),
		TotalPrice:       Money(r.TotalPrice),
		DepositRequired:  r.DepositRequired,
		DepositAmount:    Money(r.DepositAmount),
		Breakdown:        make([]LineItemResponse, len(r.Breakdown)),
		AppliedPromoCode: r.AppliedPromoCode,
		PromoRejection:   r.PromoRejection,
	}
	for i, li := range r.Breakdown {
		resp.Breakdown[i] = LineItemResponse{Description: li.Description, Amount: Money(li.Amount), Category: string(li.Category)}
	}
	if r.ServiceArea != nil {
		miles, within := r.ServiceArea.DistanceMiles, r.ServiceArea.IsWithinArea
		resp.DistanceMiles = &miles
		resp.IsWithinArea = &within
	}
	return resp
}

type RescheduleResponse struct {
	Success            bool             `json:"success"`
	Booking            BookingResponse  `json:"booking"`
	OriginalDateTime   time.Time        `json:"originalDateTime"`
	RescheduleFee      float64          `json:"rescheduleFee"`
	HoursUntilOriginal int              `json:"hoursUntilOriginal"`
	Payment            *PaymentResponse `json:"payment,omitempty"`
	Message            string           `json:"message"`
	Warnings           []string         `json:"warnings,omitempty"`
}

type ReschedulePreviewResponse struct {
	CanReschedule  bool        `json:"canReschedule"`
	Reasons        []string    `json:"reasons"`
	Fee            float64     `json:"fee"`
	CurrentStatus  string      `json:"currentStatus"`
	CurrentTime    time.Time   `json:"currentDateTime"`
	SuggestedTimes []time.Time `json:"suggestedTimes,omitempty"`
}

type RefundQuoteResponse struct {
	TotalPaid       float64   `json:"totalPaid"`
	CancellationFee float64   `json:"cancellationFee"`
	ProcessingFee   float64   `json:"processingFee"`
	NetRefund       float64   `json:"netRefund"`
	RefundDeadline  time.Time `json:"refundDeadline"`
}

type CancelBookingResponse struct {
	Success  bool                `json:"success"`
	Booking  BookingResponse     `json:"booking"`
	Refund   RefundQuoteResponse `json:"refund"`
	Message  string              `json:"message"`
	Warnings []string            `json:"warnings,omitempty"`
}

type PromoCodeResponse struct {
	ID                 string     `json:"id"`
	Code               string     `json:"code"`
	Description        string     `json:"description,omitempty"`
	DiscountType       string     `json:"discountType"`
	DiscountValue      float64    `json:"discountValue"`
	MinimumAmount      *float64   `json:"minimumAmount,omitempty"`
	MaxDiscountAmount  *float64   `json:"maxDiscountAmount,omitempty"`
	UsageLimit         *int       `json:"usageLimit,omitempty"`
	UsageCount         int        `json:"usageCount"`
	PerCustomerLimit   *int       `json:"perCustomerLimit,omitempty"`
	ValidFrom          time.Time  `json:"validFrom"`
	ValidUntil         *time.Time `json:"validUntil,omitempty"`
	ApplicableServices []string   `json:"applicableServices"`
	Active             bool       `json:"active"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func nullMoney(n decimal.NullDecimal) *float64 {
	if !n.Valid {
		return nil
	}
	v := Money(n.Decimal)
	return &v
}

func ToPromoCodeResponse(p *models.PromoCode) PromoCodeResponse {
	services := p.ApplicableServices
	if services == nil {
		services = []string{}
	}
	return PromoCodeResponse{
		ID:                 p.ID.String(),
		Code:               p.Code,
		Description:        p.Description,
		DiscountType:       string(p.DiscountType),
		DiscountValue:      Money(p.DiscountValue),
		MinimumAmount:      nullMoney(p.MinimumAmount),
		MaxDiscountAmount:  nullMoney(p.MaxDiscountAmount),
		UsageLimit:         p.UsageLimit,
		UsageCount:         p.UsageCount,
		PerCustomerLimit:   p.PerCustomerLimit,
		ValidFrom:          p.ValidFrom,
		ValidUntil:         p.ValidUntil,
		ApplicableServices: services,
		Active:             p.Active,
		CreatedAt:          p.CreatedAt,
	}
}

type PromoListResponse struct {
	PromoCodes []PromoCodeResponse `json:"promoCodes"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
}

type PromoValidationResponse struct {
	Valid          bool    `json:"valid"`
	Reason         string  `json:"reason,omitempty"`
	DiscountAmount float64 `json:"discountAmount"`
	Code           string  `json:"code,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
