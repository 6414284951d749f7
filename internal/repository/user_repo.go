package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/notarypros/booking-service/internal/models"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindOrCreateByEmail(ctx context.Context, tx *gorm.DB, name, email, phone string) (*models.User, bool, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindOrCreateByEmail relies on the unique email index: a concurrent insert
// for the same address is a no-op and the existing row is returned. Inside tx
// the new row rolls back with the caller.
func (r *userRepository) FindOrCreateByEmail(ctx context.Context, tx *gorm.DB, name, email, phone string) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user := models.User{Name: name, Email: email, Phone: phone, Role: "SIGNER"}

	db := conn(ctx, r.db, tx)
	res := db.
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&user)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &user, true, nil
	}

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}
