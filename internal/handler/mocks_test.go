package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/notarypros/booking-service/internal/dto"
	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/payments"
	"github.com/notarypros/booking-service/internal/pricing"
	"github.com/notarypros/booking-service/internal/repository"
	"github.com/notarypros/booking-service/internal/service"
	"github.com/notarypros/booking-service/internal/validation"
)

// --- Mock BookingService ---

type mockBookingService struct {
	createFn     func(ctx context.Context, req dto.CreateBookingRequest, opts service.CreateOptions) *service.BookingResult
	getFn        func(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	listFn       func(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error)
	rescheduleFn func(ctx context.Context, req dto.RescheduleRequest) (*service.RescheduleResult, error)
	previewFn    func(ctx context.Context, id uuid.UUID, proposed *time.Time) (*service.ReschedulePreview, error)
	cancelFn     func(ctx context.Context, id uuid.UUID, req dto.CancelBookingRequest) (*service.CancelResult, error)
	statusFn     func(ctx context.Context, id uuid.UUID, status models.BookingStatus) (*models.Booking, error)
	paymentFn    func(ctx context.Context, event *payments.Event) error
	syncFn       func(ctx context.Context, id uuid.UUID, tags []string) error
}

func (m *mockBookingService) CreateBooking(ctx context.Context, req dto.CreateBookingRequest, opts service.CreateOptions) *service.BookingResult {
	return m.createFn(ctx, req, opts)
}
func (m *mockBookingService) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return m.getFn(ctx, id)
}
func (m *mockBookingService) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error) {
	return m.listFn(ctx, filter)
}
func (m *mockBookingService) Reschedule(ctx context.Context, req dto.RescheduleRequest) (*service.RescheduleResult, error) {
	return m.rescheduleFn(ctx, req)
}
func (m *mockBookingService) PreviewReschedule(ctx context.Context, id uuid.UUID, proposed *time.Time) (*service.ReschedulePreview, error) {
	return m.previewFn(ctx, id, proposed)
}
func (m *mockBookingService) CancelBooking(ctx context.Context, id uuid.UUID, req dto.CancelBookingRequest) (*service.CancelResult, error) {
	return m.cancelFn(ctx, id, req)
}
func (m *mockBookingService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.BookingStatus) (*models.Booking, error) {
	return m.statusFn(ctx, id, status)
}
func (m *mockBookingService) HandlePaymentEvent(ctx context.Context, event *payments.Event) error {
	if m.paymentFn != nil {
		return m.paymentFn(ctx, event)
	}
	return nil
}
func (m *mockBookingService) SyncCRM(ctx context.Context, id uuid.UUID, tags []string) error {
	if m.syncFn != nil {
		return m.syncFn(ctx, id, tags)
	}
	return nil
}

// --- Mock PromoService ---

type mockPromoService struct {
	validateFn   func(ctx context.Context, code, email, serviceID string, subtotal decimal.Decimal) (pricing.PromoDecision, error)
	createFn     func(ctx context.Context, req dto.CreatePromoCodeRequest) (*models.PromoCode, error)
	listFn       func(ctx context.Context, filter repository.PromoFilter) ([]models.PromoCode, int64, error)
	deactivateFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockPromoService) Validate(ctx context.Context, code, email, serviceID string, subtotal decimal.Decimal) (pricing.PromoDecision, error) {
	return m.validateFn(ctx, code, email, serviceID, subtotal)
}
func (m *mockPromoService) Redeem(ctx context.Context, tx *gorm.DB, r service.Redemption) error {
	return nil
}
func (m *mockPromoService) Create(ctx context.Context, req dto.CreatePromoCodeRequest) (*models.PromoCode, error) {
	return m.createFn(ctx, req)
}
func (m *mockPromoService) List(ctx context.Context, filter repository.PromoFilter) ([]models.PromoCode, int64, error) {
	return m.listFn(ctx, filter)
}
func (m *mockPromoService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.deactivateFn(ctx, id)
}

// --- Mock Pricer ---

type mockPricer struct {
	calculateFn func(ctx context.Context, serviceType string, loc *pricing.Location, mods pricing.Modifiers) (*pricing.Result, error)
}

func (m *mockPricer) Calculate(ctx context.Context, serviceType string, loc *pricing.Location, mods pricing.Modifiers) (*pricing.Result, error) {
	return m.calculateFn(ctx, serviceType, loc, mods)
}

// --- Helpers ---

func newContext(method, target string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = validation.New()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return http.StatusInternalServerError
}

func sampleBooking() *models.Booking {
	contact := "contact-1"
	return &models.Booking{
		ID:                uuid.MustParse("6f1c2b7a-3d4e-4f5a-8b9c-0d1e2f3a4b5c"),
		ServiceID:         "svc-loan",
		Status:            models.StatusPaymentPending,
		ScheduledDateTime: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
		CustomerName:      "Jane Doe",
		CustomerEmail:     "jane@example.com",
		LocationType:      models.LocationClientAddress,
		BasePrice:         decimal.NewFromInt(150),
		PriceAtBooking:    decimal.RequireFromString("235"),
		DepositRequired:   true,
		DepositAmount:     decimal.RequireFromString("117.5"),
		DepositStatus:     models.PaymentPending,
		CRMContactID:      &contact,
	}
}
