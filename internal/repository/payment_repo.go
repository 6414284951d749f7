package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/notarypros/booking-service/internal/models"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error
	FindByBooking(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) ([]models.Payment, error)
	FindByProviderIDForUpdate(ctx context.Context, tx *gorm.DB, providerID string) (*models.Payment, error)
	AttachIntent(ctx context.Context, id uuid.UUID, providerID string) error
	Save(ctx context.Context, tx *gorm.DB, payment *models.Payment) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	return conn(ctx, r.db, tx).Create(payment).Error
}

func (r *paymentRepository) FindByBooking(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	if err := conn(ctx, r.db, tx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) FindByProviderIDForUpdate(ctx context.Context, tx *gorm.DB, providerID string) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_payment_id = ?", providerID).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) AttachIntent(ctx context.Context, id uuid.UUID, providerID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Update("provider_payment_id", providerID).Error
}

func (r *paymentRepository) Save(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	return conn(ctx, r.db, tx).Save(payment).Error
}
