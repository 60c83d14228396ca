package mappers

import (
	"kreltrack/internal/domain/user"
	"kreltrack/internal/infrastructure/persistence/models"
)

func UserToModel(u *user.User) *models.UserModel {
	s := u.Snapshot()
	return &models.UserModel{
		ID:             s.ID,
		Username:       s.Username,
		PasswordHash:   s.PasswordHash,
		Role:           s.Role,
		Active:         s.Active,
		FailedAttempts: s.FailedAttempts,
		LastFailedAt:   s.LastFailedAt,
		LockedUntil:    s.LockedUntil,
		LastLoginAt:    s.LastLoginAt,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func UserToDomain(m *models.UserModel) (*user.User, error) {
	return user.ReconstructUser(user.Snapshot{
		ID:             m.ID,
		Username:       m.Username,
		PasswordHash:   m.PasswordHash,
		Role:           m.Role,
		Active:         m.Active,
		FailedAttempts: m.FailedAttempts,
		LastFailedAt:   m.LastFailedAt,
		LockedUntil:    m.LockedUntil,
		LastLoginAt:    m.LastLoginAt,
		Version:        m.Version,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	})
}
