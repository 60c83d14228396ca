package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLogModel records one committed write. Rows are written in the same
// transaction as the change they describe.
type AuditLogModel struct {
	ID        uint           `gorm:"primaryKey"`
	Entity    string         `gorm:"size:20;not null;index:idx_audit_entity"`
	EntityKey string         `gorm:"size:64;not null;index:idx_audit_entity"`
	Action    string         `gorm:"size:20;not null"`
	Actor     string         `gorm:"size:32;not null;index"`
	Details   datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

func (AuditLogModel) TableName() string {
	return "audit_logs"
}
