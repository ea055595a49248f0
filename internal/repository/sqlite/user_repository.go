package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gocomet/parcel-pickup/internal/domain/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository stores users through gorm
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.db.WithContext(ctx).Create(toUserRecord(u)).Error
	if isUniqueViolation(err) {
		return user.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id.String()))
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*user.User, error) {
	u, err := r.first(r.db.WithContext(ctx).Where("username = ?", login))
	if errors.Is(err, user.ErrUserNotFound) {
		return r.first(r.db.WithContext(ctx).Where("email = ?", strings.ToLower(login)))
	}
	return u, err
}

func (r *UserRepository) Exists(ctx context.Context, username, email, phone string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userRecord{}).
		Where("username = ? OR email = ? OR phone = ?", username, email, phone).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id.String()).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) first(q *gorm.DB) (*user.User, error) {
	var rec userRecord
	err := q.First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return rec.toDomain()
}
