package dto

// Sources a booking request can arrive from.
const (
	SourceWebsite = "website"
	SourceCRM     = "ghl"
	SourcePhone   = "phone"
	SourceAdmin   = "admin"
)

type CreateBookingRequest struct {
	CustomerName      string `json:"customerName" validate:"required,max=120"`
	CustomerEmail     string `json:"customerEmail" validate:"required,email"`
	CustomerPhone     string `json:"customerPhone" validate:"required,min=10,max=20"`
	ServiceID         string `json:"serviceId" validate:"required"`
	ScheduledDateTime string `json:"scheduledDateTime" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	LocationType      string `json:"locationType" validate:"required,oneof=CLIENT_SPECIFIED_ADDRESS OUR_OFFICE REMOTE_ONLINE_NOTARIZATION PUBLIC_PLACE"`
	AddressStreet     string `json:"addressStreet" validate:"required_if=LocationType CLIENT_SPECIFIED_ADDRESS,required_if=LocationType PUBLIC_PLACE"`
	AddressCity       string `json:"addressCity" validate:"required_if=LocationType CLIENT_SPECIFIED_ADDRESS,required_if=LocationType PUBLIC_PLACE"`
	AddressState      string `json:"addressState" validate:"required_if=LocationType CLIENT_SPECIFIED_ADDRESS,required_if=LocationType PUBLIC_PLACE"`
	AddressZip        string `json:"addressZip" validate:"required_if=LocationType CLIENT_SPECIFIED_ADDRESS,required_if=LocationType PUBLIC_PLACE,max=10"`
	LocationNotes     string `json:"locationNotes" validate:"max=1000"`
	Notes             string `json:"notes" validate:"max=2000"`
	NumberOfSigners   int    `json:"numberOfSigners" validate:"gte=0,max=20"`
	DocumentCount     int    `json:"documentCount" validate:"gte=0,max=200"`
	Urgency           string `json:"urgency" validate:"omitempty,oneof=STANDARD RUSH EMERGENCY"`
	PromoCode         string `json:"promoCode" validate:"max=64"`
	FirstTimeCustomer bool   `json:"firstTimeCustomer"`
	LeadSource        string `json:"leadSource"`
	CampaignName      string `json:"campaignName"`
	ReferredBy        string `json:"referredBy"`
	GHLContactID      string `json:"ghlContactId"`
	Source            string `json:"source" validate:"omitempty,oneof=website ghl phone admin"`
}

type QuoteRequest struct {
	ServiceType       string `json:"serviceType" validate:"required"`
	ServiceID         string `json:"serviceId"`
	LocationType      string `json:"locationType" validate:"omitempty,oneof=CLIENT_SPECIFIED_ADDRESS OUR_OFFICE REMOTE_ONLINE_NOTARIZATION PUBLIC_PLACE"`
	AddressStreet     string `json:"addressStreet"`
	AddressCity       string `json:"addressCity"`
	AddressState      string `json:"addressState"`
	AddressZip        string `json:"addressZip" validate:"omitempty,min=5,max=10"`
	Urgency           string `json:"urgency" validate:"omitempty,oneof=STANDARD RUSH EMERGENCY"`
	DocumentCount     int    `json:"documentCount" validate:"gte=0,max=200"`
	PromoCode         string `json:"promoCode"`
	CustomerEmail     string `json:"customerEmail" validate:"omitempty,email"`
	FirstTimeCustomer bool   `json:"firstTimeCustomer"`
}

type RescheduleRequest struct {
	BookingID   string `json:"bookingId" validate:"required,uuid"`
	NewDateTime string `json:"newDateTime" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	NewAddress  string `json:"newAddress" validate:"max=300"`
	Reason      string `json:"reason" validate:"max=1000"`
	RequestedBy string `json:"requestedBy" validate:"required,oneof=client staff system"`
}

type CancelBookingRequest struct {
	RequestedBy string `json:"requestedBy" validate:"required,oneof=client staff"`
	Reason      string `json:"reason" validate:"max=1000"`
	WaiveFee    bool   `json:"waiveFee"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=CONFIRMED SCHEDULED IN_PROGRESS COMPLETED CANCELLED_BY_CLIENT CANCELLED_BY_STAFF"`
}

type CreatePromoCodeRequest struct {
	Code               string   `json:"code" validate:"required,min=3,max=32,alphanum"`
	Description        string   `json:"description" validate:"max=300"`
	DiscountType       string   `json:"discountType" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue      float64  `json:"discountValue" validate:"gt=0"`
	MinimumAmount      *float64 `json:"minimumAmount" validate:"omitempty,gte=0"`
	MaxDiscountAmount  *float64 `json:"maxDiscountAmount" validate:"omitempty,gt=0"`
	UsageLimit         *int     `json:"usageLimit" validate:"omitempty,gt=0"`
	PerCustomerLimit   *int     `json:"perCustomerLimit" validate:"omitempty,gt=0"`
	ValidFrom          string   `json:"validFrom" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	ValidUntil         string   `json:"validUntil" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	ApplicableServices []string `json:"applicableServices"`
	CreatedBy          string   `json:"createdBy"`
}

type ValidatePromoRequest struct {
	Code          string  `json:"code" validate:"required"`
	CustomerEmail string  `json:"customerEmail" validate:"omitempty,email"`
	ServiceID     string  `json:"serviceId"`
	Subtotal      float64 `json:"subtotal" validate:"gte=0"`
}

// ServiceOfferingMessage is the catalog payload published on service.* keys.
type ServiceOfferingMessage struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	ServiceType       string  `json:"serviceType"`
	BasePrice         float64 `json:"basePrice"`
	DurationMinutes   int     `json:"durationMinutes"`
	RequiresDeposit   bool    `json:"requiresDeposit"`
	DepositAmount     float64 `json:"depositAmount"`
	DepositPercentage float64 `json:"depositPercentage"`
	Active            bool    `json:"active"`
}
