package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"maiblog/internal/model"
)

// UserRepository defines persistence operations on identities.
// Lookups that match nothing return gorm.ErrRecordNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	SetMembershipExpiry(ctx context.Context, user *model.User, expiresAt time.Time) (*model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetMembershipExpiry grants membership until expiresAt. Admins keep their role.
func (r *userRepository) SetMembershipExpiry(ctx context.Context, user *model.User, expiresAt time.Time) (*model.User, error) {
	updated := *user
	if updated.Role != model.RoleAdmin {
		updated.Role = model.RoleMember
	}
	expiry := expiresAt.UTC()
	updated.MembershipExpiresAt = &expiry

	err := r.db.WithContext(ctx).Model(&model.User{ID: user.ID}).Updates(map[string]any{
		"role":                  updated.Role,
		"membership_expires_at": expiry,
	}).Error
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
