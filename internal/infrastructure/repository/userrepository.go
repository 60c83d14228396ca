package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"kreltrack/internal/domain/user"
	"kreltrack/internal/infrastructure/persistence/mappers"
	"kreltrack/internal/infrastructure/persistence/models"
	"kreltrack/internal/shared/db"
	apperrors "kreltrack/internal/shared/errors"
)

var _ user.Repository = (*UserRepository)(nil)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	model := mappers.UserToModel(u)
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return user.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return u.SetID(model.ID)
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	model := mappers.UserToModel(u)
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(&models.UserModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Select("*").
		Omit("id", "username", "created_at").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return user.ErrUserVersionChanged
	}
	return nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*user.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	var rows []models.UserModel
	if err := db.GetTxFromContext(ctx, r.db).Order("username ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]*user.User, 0, len(rows))
	for i := range rows {
		u, err := mappers.UserToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *UserRepository) first(ctx context.Context, cond string, arg interface{}) (*user.User, error) {
	var row models.UserModel
	if err := db.GetTxFromContext(ctx, r.db).Where(cond, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return mappers.UserToDomain(&row)
}
