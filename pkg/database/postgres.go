package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/notarypros/booking-service/internal/models"
)

// Indexes AutoMigrate cannot express.
var partialIndexes = []string{
	// At most one open booking payment per booking.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_open_booking
		ON payments (booking_id, purpose)
		WHERE status = 'PENDING' AND purpose = 'BOOKING'`,
	// One active booking per start time.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_active_slot
		ON bookings (scheduled_date_time)
		WHERE status NOT IN ('CANCELLED_BY_CLIENT', 'CANCELLED_BY_STAFF')`,
}

type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func NewPostgresDB(dsn string, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.ServiceOffering{},
		&models.PromoCode{},
		&models.Booking{},
		&models.Payment{},
		&models.PromoCodeUsage{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
