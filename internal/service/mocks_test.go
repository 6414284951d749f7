package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notarypros/booking-service/internal/crm"
	"github.com/notarypros/booking-service/internal/models"
	"github.com/notarypros/booking-service/internal/payments"
	"github.com/notarypros/booking-service/internal/pricing"
	"github.com/notarypros/booking-service/internal/repository"
)

// --- Mock Transactor ---

type mockTx struct {
	calls int
}

func (m *mockTx) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.calls++
	return fn(nil)
}

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	createFn         func(ctx context.Context, tx *gorm.DB, b *models.Booking) error
	findByIDFn       func(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	findForUpdateFn  func(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Booking, error)
	listFn           func(ctx context.Context, f repository.BookingFilter) ([]models.Booking, error)
	saveFn           func(ctx context.Context, tx *gorm.DB, b *models.Booking) error
	setContactFn     func(ctx context.Context, id uuid.UUID, contactID string) error
	existsActiveAtFn func(ctx context.Context, tx *gorm.DB, at time.Time, exclude uuid.UUID) (bool, error)
	created, saved   []*models.Booking
}

func (m *mockBookingRepo) Create(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
	m.created = append(m.created, b)
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, tx, b)
}
func (m *mockBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockBookingRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Booking, error) {
	return m.findForUpdateFn(ctx, tx, id)
}
func (m *mockBookingRepo) List(ctx context.Context, f repository.BookingFilter) ([]models.Booking, error) {
	return m.listFn(ctx, f)
}
func (m *mockBookingRepo) Save(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
	m.saved = append(m.saved, b)
	if m.saveFn == nil {
		return nil
	}
	return m.saveFn(ctx, tx, b)
}
func (m *mockBookingRepo) SetCRMContactID(ctx context.Context, id uuid.UUID, contactID string) error {
	if m.setContactFn == nil {
		return nil
	}
	return m.setContactFn(ctx, id, contactID)
}
func (m *mockBookingRepo) ExistsActiveAt(ctx context.Context, tx *gorm.DB, at time.Time, exclude uuid.UUID) (bool, error) {
	if m.existsActiveAtFn == nil {
		return false, nil
	}
	return m.existsActiveAtFn(ctx, tx, at, exclude)
}

// --- Mock ServiceRepository ---

type mockServiceRepo struct {
	findActiveFn func(ctx context.Context, id string) (*models.ServiceOffering, error)
}

func (m *mockServiceRepo) FindByID(ctx context.Context, id string) (*models.ServiceOffering, error) {
	return m.findActiveFn(ctx, id)
}
func (m *mockServiceRepo) FindActiveByID(ctx context.Context, id string) (*models.ServiceOffering, error) {
	return m.findActiveFn(ctx, id)
}
func (m *mockServiceRepo) ListActive(ctx context.Context) ([]models.ServiceOffering, error) {
	return nil, nil
}
func (m *mockServiceRepo) Upsert(ctx context.Context, svc *models.ServiceOffering) error {
	return nil
}

// --- Mock UserRepository ---

type mockUserRepo struct {
	findByIDFn     func(ctx context.Context, id uuid.UUID) (*models.User, error)
	findOrCreateFn func(ctx context.Context, tx *gorm.DB, name, email, phone string) (*models.User, bool, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockUserRepo) FindOrCreateByEmail(ctx context.Context, tx *gorm.DB, name, email, phone string) (*models.User, bool, error) {
	if m.findOrCreateFn == nil {
		return &models.User{ID: uuid.New(), Email: email, Name: name}, true, nil
	}
	return m.findOrCreateFn(ctx, tx, name, email, phone)
}

// --- Mock PaymentRepository ---

type mockPaymentRepo struct {
	findByBookingFn    func(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) ([]models.Payment, error)
	findByProviderIDFn func(ctx context.Context, tx *gorm.DB, providerID string) (*models.Payment, error)
	createFn           func(ctx context.Context, tx *gorm.DB, p *models.Payment) error
	created, saved     []*models.Payment
	attached           map[uuid.UUID]string
}

func (m *mockPaymentRepo) Create(ctx context.Context, tx *gorm.DB, p *models.Payment) error {
	m.created = append(m.created, p)
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, tx, p)
}
func (m *mockPaymentRepo) FindByBooking(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) ([]models.Payment, error) {
	if m.findByBookingFn == nil {
		return nil, nil
	}
	return m.findByBookingFn(ctx, tx, bookingID)
}
func (m *mockPaymentRepo) FindByProviderIDForUpdate(ctx context.Context, tx *gorm.DB, providerID string) (*models.Payment, error) {
	return m.findByProviderIDFn(ctx, tx, providerID)
}
func (m *mockPaymentRepo) AttachIntent(ctx context.Context, id uuid.UUID, providerID string) error {
	if m.attached == nil {
		m.attached = map[uuid.UUID]string{}
	}
	m.attached[id] = providerID
	return nil
}
func (m *mockPaymentRepo) Save(ctx context.Context, tx *gorm.DB, p *models.Payment) error {
	m.saved = append(m.saved, p)
	return nil
}

// --- Mock PromoCodeRepository ---

type mockPromoRepo struct {
	createFn        func(ctx context.Context, p *models.PromoCode) error
	findByCodeFn    func(ctx context.Context, code string) (*models.PromoCode, error)
	findForUpdateFn func(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.PromoCode, error)
	deactivateFn    func(ctx context.Context, id uuid.UUID) error
	countUsageFn    func(ctx context.Context, tx *gorm.DB, promoID uuid.UUID, email string) (int64, error)
	incrementFn     func(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	usages          []*models.PromoCodeUsage
	increments      int
}

func (m *mockPromoRepo) Create(ctx context.Context, p *models.PromoCode) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, p)
}
func (m *mockPromoRepo) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	return m.findByCodeFn(ctx, code)
}
func (m *mockPromoRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error) {
	return m.findForUpdateFn(ctx, nil, id)
}
func (m *mockPromoRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.PromoCode, error) {
	return m.findForUpdateFn(ctx, tx, id)
}
func (m *mockPromoRepo) List(ctx context.Context, f repository.PromoFilter) ([]models.PromoCode, int64, error) {
	return nil, 0, nil
}
func (m *mockPromoRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.deactivateFn(ctx, id)
}
func (m *mockPromoRepo) CountCustomerUsage(ctx context.Context, tx *gorm.DB, promoID uuid.UUID, email string) (int64, error) {
	if m.countUsageFn == nil {
		return 0, nil
	}
	return m.countUsageFn(ctx, tx, promoID, email)
}
func (m *mockPromoRepo) IncrementUsage(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	m.increments++
	if m.incrementFn == nil {
		return true, nil
	}
	return m.incrementFn(ctx, tx, id)
}
func (m *mockPromoRepo) CreateUsage(ctx context.Context, tx *gorm.DB, u *models.PromoCodeUsage) error {
	m.usages = append(m.usages, u)
	return nil
}

// --- Mock collaborators ---

type mockPricer struct {
	calculateFn func(ctx context.Context, serviceType string, loc *pricing.Location, mods pricing.Modifiers) (*pricing.Result, error)
}

func (m *mockPricer) Calculate(ctx context.Context, serviceType string, loc *pricing.Location, mods pricing.Modifiers) (*pricing.Result, error) {
	return m.calculateFn(ctx, serviceType, loc, mods)
}

type mockCRM struct {
	upsertFn func(ctx context.Context, c crm.Contact) (crm.ContactRef, error)
	tags     []string
	fields   map[string]string
}

func (m *mockCRM) UpsertContact(ctx context.Context, c crm.Contact) (crm.ContactRef, error) {
	if m.upsertFn == nil {
		return crm.ContactRef{ID: "contact-1", Created: true}, nil
	}
	return m.upsertFn(ctx, c)
}
func (m *mockCRM) AddTags(ctx context.Context, contactID string, tags []string) error {
	m.tags = append(m.tags, tags...)
	return nil
}
func (m *mockCRM) UpdateCustomFields(ctx context.Context, contactID string, fields map[string]string) error {
	m.fields = fields
	return nil
}

type mockProcessor struct {
	intentFn func(ctx context.Context, p payments.IntentParams) (*payments.Intent, error)
	intents  []payments.IntentParams
	refunds  []int64
}

func (m *mockProcessor) CreatePaymentIntent(ctx context.Context, p payments.IntentParams) (*payments.Intent, error) {
	m.intents = append(m.intents, p)
	if m.intentFn == nil {
		return &payments.Intent{ID: "pi_123", ClientSecret: "pi_123_secret", Status: "requires_payment_method", Amount: p.AmountCents}, nil
	}
	return m.intentFn(ctx, p)
}
func (m *mockProcessor) CreateRefund(ctx context.Context, intentID string, amountCents int64, key string) (*payments.Refund, error) {
	m.refunds = append(m.refunds, amountCents)
	return &payments.Refund{ID: "re_1", Status: "succeeded", Amount: amountCents}, nil
}

type published struct {
	key     string
	payload any
}

type mockPublisher struct {
	err  error
	sent []published
}

func (m *mockPublisher) Publish(routingKey string, payload any) error {
	m.sent = append(m.sent, published{key: routingKey, payload: payload})
	return m.err
}

func (m *mockPublisher) keys() []string {
	var keys []string
	for _, p := range m.sent {
		keys = append(keys, p.key)
	}
	return keys
}
