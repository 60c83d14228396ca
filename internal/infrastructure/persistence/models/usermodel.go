package models

import "time"

type UserModel struct {
	ID             uint   `gorm:"primaryKey"`
	Username       string `gorm:"uniqueIndex;size:32;not null"`
	PasswordHash   string `gorm:"size:100;not null"`
	Role           string `gorm:"size:20;not null"`
	Active         bool   `gorm:"not null;default:true"`
	FailedAttempts int    `gorm:"not null;default:0"`
	LastFailedAt   *time.Time
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	Version        int       `gorm:"not null;default:1"`
	CreatedAt      time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (UserModel) TableName() string {
	return "users"
}
