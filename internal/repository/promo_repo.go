package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/notarypros/booking-service/internal/models"
)

type PromoFilter struct {
	Active *bool
	Page   int
	Limit  int
}

type PromoCodeRepository interface {
	Create(ctx context.Context, promo *models.PromoCode) error
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.PromoCode, error)
	List(ctx context.Context, filter PromoFilter) ([]models.PromoCode, int64, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	CountCustomerUsage(ctx context.Context, tx *gorm.DB, promoID uuid.UUID, email string) (int64, error)
	IncrementUsage(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	CreateUsage(ctx context.Context, tx *gorm.DB, usage *models.PromoCodeUsage) error
}

type promoCodeRepository struct {
	db *gorm.DB
}

func NewPromoCodeRepository(db *gorm.DB) PromoCodeRepository {
	return &promoCodeRepository{db: db}
}

func (r *promoCodeRepository) Create(ctx context.Context, promo *models.PromoCode) error {
	return r.db.WithContext(ctx).Create(promo).Error
}

func (r *promoCodeRepository) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).Where("code = ?", models.NormalizeCode(code)).First(&promo).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *promoCodeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).First(&promo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

// FindByIDForUpdate locks the promo row so concurrent redemptions of the same
// code serialize on it.
func (r *promoCodeRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&promo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *promoCodeRepository) List(ctx context.Context, filter PromoFilter) ([]models.PromoCode, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.PromoCode{})
	if filter.Active != nil {
		q = q.Where("active = ?", *filter.Active)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	var promos []models.PromoCode
	if err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&promos).Error; err != nil {
		return nil, 0, err
	}
	return promos, total, nil
}

func (r *promoCodeRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.PromoCode{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *promoCodeRepository) CountCustomerUsage(ctx context.Context, tx *gorm.DB, promoID uuid.UUID, email string) (int64, error) {
	var count int64
	err := conn(ctx, r.db, tx).
		Model(&models.PromoCodeUsage{}).
		Where("promo_code_id = ? AND customer_email = ?", promoID, strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	return count, err
}

// IncrementUsage bumps the usage counter only while it is under the limit.
// It reports false when the limit was already reached.
func (r *promoCodeRepository) IncrementUsage(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := conn(ctx, r.db, tx).
		Model(&models.PromoCode{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *promoCodeRepository) CreateUsage(ctx context.Context, tx *gorm.DB, usage *models.PromoCodeUsage) error {
	return conn(ctx, r.db, tx).Create(usage).Error
}
