package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	domainrepo "storefront/internal/repository"

	"gorm.io/gorm"
)

// users table row
type userRecord struct {
	ID           string `gorm:"primaryKey;type:varchar(64)"`
	Email        string `gorm:"uniqueIndex;type:varchar(255);not null"`
	Name         string `gorm:"type:varchar(255)"`
	Role         string `gorm:"type:varchar(16);not null;default:user"`
	TokenVersion int    `gorm:"not null;default:0"`
	IsActive     bool   `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

type userGormRepository struct {
	db *gorm.DB
}

// NewUserGormRepository is injected into the auth usecase and the token guard from main.go.
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	rec := toUserRecord(user)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *userGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrUserNotFound
		}
		return nil, err
	}
	u := fromUserRecord(rec)
	return &u, nil
}

func (r *userGormRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrUserNotFound
		}
		return nil, err
	}
	u := fromUserRecord(rec)
	return &u, nil
}

// Update saves every column.
func (r *userGormRepository) Update(ctx context.Context, user *model.User) error {
	rec := toUserRecord(user)
	return r.db.WithContext(ctx).Save(&rec).Error
}

func toUserRecord(u *model.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(u.Role),
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func fromUserRecord(rec userRecord) model.User {
	return model.User{
		ID:           rec.ID,
		Email:        rec.Email,
		Name:         rec.Name,
		Role:         model.Role(rec.Role),
		TokenVersion: rec.TokenVersion,
		IsActive:     rec.IsActive,
		LastLoginAt:  rec.LastLoginAt,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}
