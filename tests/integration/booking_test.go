//go:build integration

package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/notarypros/booking-service/internal/dto"
	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/payments"
	"github.com/notarypros/booking-service/internal/pricing"
	"github.com/notarypros/booking-service/internal/repository"
	"github.com/notarypros/booking-service/internal/service"
	"github.com/notarypros/booking-service/pkg/logging"
)

type fakeProcessor struct {
	mu sync.Mutex
	n  int
}

func (f *fakeProcessor) CreatePaymentIntent(ctx context.Context, params payments.IntentParams) (*payments.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	id := fmt.Sprintf("pi_test_%d", f.n)
	return &payments.Intent{ID: id, ClientSecret: id + "_secret", Amount: params.AmountCents, Status: "requires_payment_method"}, nil
}

func (f *fakeProcessor) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, idempotencyKey string) (*payments.Refund, error) {
	return &payments.Refund{ID: "re_" + paymentIntentID, Amount: amountCents, Status: "succeeded"}, nil
}

type stack struct {
	bookings service.BookingService
	promos   service.PromoService
}

func newStack(processor service.PaymentProcessor) stack {
	logger := logging.Discard()
	promos := service.NewPromoService(repository.NewPromoCodeRepository(testDB), logger, nil)
	engine := pricing.NewEngine(pricing.DefaultConfig(), nil, promos, logger, nil)
	svc := service.NewBookingService(service.Deps{
		Tx:        repository.NewTransactor(testDB),
		Bookings:  repository.NewBookingRepository(testDB),
		Services:  repository.NewServiceRepository(testDB),
		Users:     repository.NewUserRepository(testDB),
		Payments:  repository.NewPaymentRepository(testDB),
		Promos:    promos,
		Pricing:   engine,
		Processor: processor,
		Logger:    logger,
	})
	return stack{bookings: svc, promos: promos}
}

func createService(t *testing.T) *models.ServiceOffering {
	t.Helper()
	offering := &models.ServiceOffering{
		ID:                "svc-loan",
		Name:              "Loan Signing",
		ServiceType:       "LOAN_SIGNING",
		BasePrice:         decimal.NewFromInt(150),
		DurationMinutes:   90,
		DepositAmount:     decimal.Zero,
		DepositPercentage: decimal.Zero,
		Active:            true,
	}
	require.NoError(t, testDB.Create(offering).Error)
	return offering
}

func createPromo(t *testing.T, code string, usageLimit int) *models.PromoCode {
	t.Helper()
	limit := usageLimit
	perCustomer := 1
	promo := &models.PromoCode{
		Code:             code,
		DiscountType:     models.DiscountFixedAmount,
		DiscountValue:    decimal.NewFromInt(20),
		UsageLimit:       &limit,
		PerCustomerLimit: &perCustomer,
		ValidFrom:        time.Now().Add(-time.Hour),
		Active:           true,
	}
	require.NoError(t, testDB.Create(promo).Error)
	return promo
}

func bookingRequest(email, promo string, at time.Time) dto.CreateBookingRequest {
	return dto.CreateBookingRequest{
		CustomerName:      "Test Customer",
		CustomerEmail:     email,
		CustomerPhone:     "4095551234",
		ServiceID:         "svc-loan",
		ScheduledDateTime: at.UTC().Format(time.RFC3339),
		LocationType:      string(models.LocationOurOffice),
		PromoCode:         promo,
	}
}

func count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, testDB.Model(model).Count(&n).Error)
	return n
}

// 10 customers race for a promo with one use left: exactly one booking
// commits with the discount, the rest roll back entirely.
func TestConcurrentPromoRedemption(t *testing.T) {
	cleanTables()
	createService(t)
	promo := createPromo(t, "LASTONE", 1)
	st := newStack(nil)

	const customers = 10
	at := time.Now().Add(72 * time.Hour).Truncate(time.Hour)
	var wg sync.WaitGroup
	results := make(chan *service.BookingResult, customers)

	wg.Add(customers)
	for i := 0; i < customers; i++ {
		go func(idx int) {
			defer wg.Done()
			req := bookingRequest(fmt.Sprintf("racer-%02d@example.com", idx), "LASTONE", at.Add(time.Duration(idx)*time.Hour))
			results <- st.bookings.CreateBooking(t.Context(), req, service.CreateOptions{})
		}(i)
	}
	wg.Wait()
	close(results)

	var won, conflicted int
	for res := range results {
		if res.Success {
			won++
			assert.Equal(t, "LASTONE", res.Booking.PromoCode)
			assert.True(t, res.Booking.PromoDiscount.Equal(decimal.NewFromInt(20)))
			continue
		}
		assert.Equal(t, service.KindConflict, res.ErrorKind)
		conflicted++
	}

	assert.Equal(t, 1, won)
	assert.Equal(t, customers-1, conflicted)
	assert.Equal(t, int64(1), count(t, &models.Booking{}))
	assert.Equal(t, int64(1), count(t, &models.PromoCodeUsage{}))
	assert.Equal(t, int64(1), count(t, &models.Payment{}))

	var stored models.PromoCode
	require.NoError(t, testDB.First(&stored, "id = ?", promo.ID).Error)
	assert.Equal(t, 1, stored.UsageCount)
}

// A redemption that fails inside the transaction leaves no booking or
// payment behind.
func TestPromoFailureRollsBackBooking(t *testing.T) {
	cleanTables()
	createService(t)
	createPromo(t, "ONCE", 5)
	st := newStack(nil)
	at := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	first := st.bookings.CreateBooking(t.Context(), bookingRequest("repeat@example.com", "ONCE", at), service.CreateOptions{})
	require.True(t, first.Success, first.Error)

	// Same customer again: pricing drops the promo, so the booking still goes
	// through at full price.
	second := st.bookings.CreateBooking(t.Context(), bookingRequest("repeat@example.com", "ONCE", at.Add(24*time.Hour)), service.CreateOptions{})
	require.True(t, second.Success, second.Error)
	assert.Empty(t, second.Booking.PromoCode)
	assert.Equal(t, service.ReasonCustomerLimit, second.Pricing.PromoRejection)

	assert.Equal(t, int64(2), count(t, &models.Booking{}))
	assert.Equal(t, int64(1), count(t, &models.PromoCodeUsage{}))

	// Now force the redemption itself to fail: deactivate between pricing and commit.
	bookingsBefore := count(t, &models.Booking{})
	paymentsBefore := count(t, &models.Payment{})
	promoID := first.Booking.PromoCodeID
	require.NotNil(t, promoID)

	racer := service.NewBookingService(service.Deps{
		Tx:       repository.NewTransactor(testDB),
		Bookings: repository.NewBookingRepository(testDB),
		Services: repository.NewServiceRepository(testDB),
		Users:    repository.NewUserRepository(testDB),
		Payments: repository.NewPaymentRepository(testDB),
		Promos:   st.promos,
		Pricing: pricerFunc(func(ctx context.Context, serviceType string, loc *pricing.Location, mods pricing.Modifiers) (*pricing.Result, error) {
			res, err := pricing.NewEngine(pricing.DefaultConfig(), nil, st.promos, logging.Discard(), nil).Calculate(ctx, serviceType, loc, mods)
			if err == nil {
				require.NoError(t, st.promos.Deactivate(ctx, *promoID))
			}
			return res, err
		}),
		Logger: logging.Discard(),
	})

	res := racer.CreateBooking(t.Context(), bookingRequest("late@example.com", "ONCE", at.Add(48*time.Hour)), service.CreateOptions{})

	assert.False(t, res.Success)
	assert.Equal(t, service.KindConflict, res.ErrorKind)
	assert.Equal(t, bookingsBefore, count(t, &models.Booking{}))
	assert.Equal(t, paymentsBefore, count(t, &models.Payment{}))
	assert.Equal(t, int64(1), count(t, &models.PromoCodeUsage{}))

	var lateUsers int64
	require.NoError(t, testDB.Model(&models.User{}).Where("email = ?", "late@example.com").Count(&lateUsers).Error)
	assert.Zero(t, lateUsers)
}

type pricerFunc func(ctx context.Context, serviceType string, loc *pricing.Location, mods pricing.Modifiers) (*pricing.Result, error)

func (f pricerFunc) Calculate(ctx context.Context, serviceType string, loc *pricing.Location, mods pricing.Modifiers) (*pricing.Result, error) {
	return f(ctx, serviceType, loc, mods)
}

func TestCreateIntoTakenSlot(t *testing.T) {
	cleanTables()
	createService(t)
	st := newStack(nil)
	slot := time.Now().Add(120 * time.Hour).Truncate(time.Hour)

	first := st.bookings.CreateBooking(t.Context(), bookingRequest("first@example.com", "", slot), service.CreateOptions{})
	require.True(t, first.Success, first.Error)

	second := st.bookings.CreateBooking(t.Context(), bookingRequest("second@example.com", "", slot), service.CreateOptions{})
	assert.False(t, second.Success)
	assert.Equal(t, service.KindConflict, second.ErrorKind)
	assert.Equal(t, int64(1), count(t, &models.Booking{}))
	assert.Equal(t, int64(1), count(t, &models.User{}))

	// The unique slot index catches a second active row even without the check.
	dup := *first.Booking
	dup.ID = uuid.New()
	dup.Service = nil
	err := testDB.Omit("Service").Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestRescheduleIntoTakenSlot(t *testing.T) {
	cleanTables()
	createService(t)
	st := newStack(nil)
	slotA := time.Now().Add(96 * time.Hour).Truncate(time.Hour)
	slotB := slotA.Add(2 * time.Hour)

	a := st.bookings.CreateBooking(t.Context(), bookingRequest("a@example.com", "", slotA), service.CreateOptions{})
	require.True(t, a.Success, a.Error)
	b := st.bookings.CreateBooking(t.Context(), bookingRequest("b@example.com", "", slotB), service.CreateOptions{})
	require.True(t, b.Success, b.Error)

	_, err := st.bookings.Reschedule(t.Context(), dto.RescheduleRequest{
		BookingID:   b.Booking.ID.String(),
		NewDateTime: slotA.UTC().Format(time.RFC3339),
		RequestedBy: "client",
	})
	assert.ErrorIs(t, err, service.ErrSlotUnavailable)

	// Cancelled bookings release their slot.
	_, err = st.bookings.CancelBooking(t.Context(), a.Booking.ID, dto.CancelBookingRequest{RequestedBy: "client"})
	require.NoError(t, err)

	res, err := st.bookings.Reschedule(t.Context(), dto.RescheduleRequest{
		BookingID:   b.Booking.ID.String(),
		NewDateTime: slotA.UTC().Format(time.RFC3339),
		RequestedBy: "client",
	})
	require.NoError(t, err)
	assert.True(t, res.Fee.IsZero())
	assert.True(t, res.Booking.ScheduledDateTime.Equal(slotA))
}

func TestPaymentWebhookConfirmsBooking(t *testing.T) {
	cleanTables()
	createService(t)
	st := newStack(&fakeProcessor{})
	at := time.Now().Add(72 * time.Hour).Truncate(time.Hour)

	res := st.bookings.CreateBooking(t.Context(), bookingRequest("payer@example.com", "", at), service.CreateOptions{})
	require.True(t, res.Success, res.Error)
	require.Equal(t, models.StatusPaymentPending, res.Booking.Status)
	require.NotNil(t, res.Payment)
	require.NotEmpty(t, res.Payment.ClientSecret)

	var payment models.Payment
	require.NoError(t, testDB.First(&payment, "booking_id = ?", res.Booking.ID).Error)
	require.NotNil(t, payment.ProviderPaymentID)

	event := &payments.Event{ID: "evt_1", Type: payments.EventPaymentSucceeded}
	event.Data.Object.ID = *payment.ProviderPaymentID
	require.NoError(t, st.bookings.HandlePaymentEvent(t.Context(), event))
	// Stripe retries deliveries; a replay changes nothing.
	require.NoError(t, st.bookings.HandlePaymentEvent(t.Context(), event))

	stored, err := st.bookings.GetBooking(t.Context(), res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	assert.Equal(t, models.PaymentCompleted, stored.DepositStatus)

	unknown := &payments.Event{ID: "evt_2", Type: payments.EventPaymentSucceeded}
	unknown.Data.Object.ID = "pi_never_created"
	assert.ErrorIs(t, st.bookings.HandlePaymentEvent(t.Context(), unknown), service.ErrPaymentNotFound)
}

func TestSecondOpenBookingPaymentRejected(t *testing.T) {
	cleanTables()
	createService(t)
	st := newStack(nil)
	at := time.Now().Add(72 * time.Hour).Truncate(time.Hour)

	res := st.bookings.CreateBooking(t.Context(), bookingRequest("dup@example.com", "", at), service.CreateOptions{})
	require.True(t, res.Success, res.Error)

	dup := &models.Payment{
		ID:             uuid.New(),
		BookingID:      res.Booking.ID,
		Purpose:        models.PurposeBooking,
		Provider:       "stripe",
		Amount:         decimal.NewFromInt(10),
		Currency:       "usd",
		Status:         models.PaymentPending,
		RefundedAmount: decimal.Zero,
	}
	err := testDB.Create(dup).Error

	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
