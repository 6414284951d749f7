package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/notarypros/booking-service/internal/models"
)

type ServiceRepository interface {
	FindByID(ctx context.Context, id string) (*models.ServiceOffering, error)
	FindActiveByID(ctx context.Context, id string) (*models.ServiceOffering, error)
	ListActive(ctx context.Context) ([]models.ServiceOffering, error)
	Upsert(ctx context.Context, svc *models.ServiceOffering) error
}

type serviceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) FindByID(ctx context.Context, id string) (*models.ServiceOffering, error) {
	var svc models.ServiceOffering
	if err := r.db.WithContext(ctx).First(&svc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *serviceRepository) FindActiveByID(ctx context.Context, id string) (*models.ServiceOffering, error) {
	var svc models.ServiceOffering
	if err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&svc).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *serviceRepository) ListActive(ctx context.Context) ([]models.ServiceOffering, error) {
	var services []models.ServiceOffering
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("name ASC").Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

// Upsert inserts or updates on conflict (same ID from the admin side).
func (r *serviceRepository) Upsert(ctx context.Context, svc *models.ServiceOffering) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "service_type", "base_price", "duration_minutes",
			"requires_deposit", "deposit_amount", "deposit_percentage", "active", "updated_at",
		}),
	}).Create(svc).Error
}
