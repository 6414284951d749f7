package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/notarypros/booking-service/internal/models"
)

var cancelledStatuses = []models.BookingStatus{models.StatusCancelledByClient, models.StatusCancelledByStaff}

type BookingFilter struct {
	Status        *models.BookingStatus
	CustomerEmail string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
	Save(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	SetCRMContactID(ctx context.Context, id uuid.UUID, contactID string) error
	ExistsActiveAt(ctx context.Context, tx *gorm.DB, at time.Time, excludeID uuid.UUID) (bool, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return conn(ctx, r.db, tx).Omit(clause.Associations).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Preload("Service").First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate acquires a row-level lock on the booking within the given transaction.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	q := r.db.WithContext(ctx).Model(&models.Booking{})
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if email := strings.TrimSpace(filter.CustomerEmail); email != "" {
		q = q.Where("LOWER(customer_email) = ?", strings.ToLower(email))
	}
	if filter.From != nil {
		q = q.Where("scheduled_date_time >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("scheduled_date_time < ?", *filter.To)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var bookings []models.Booking
	if err := q.Order("scheduled_date_time ASC").Limit(limit).Offset(filter.Offset).Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) Save(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return conn(ctx, r.db, tx).Omit(clause.Associations).Save(booking).Error
}

func (r *bookingRepository) SetCRMContactID(ctx context.Context, id uuid.UUID, contactID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("crm_contact_id", contactID).Error
}

// ExistsActiveAt reports whether a non-cancelled booking other than excludeID
// holds the given start time.
func (r *bookingRepository) ExistsActiveAt(ctx context.Context, tx *gorm.DB, at time.Time, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := conn(ctx, r.db, tx).
		Model(&models.Booking{}).
		Where("scheduled_date_time = ? AND id <> ? AND status NOT IN ?", at, excludeID, cancelledStatuses).
		Count(&count).Error
	return count > 0, err
}
