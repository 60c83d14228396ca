package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"kreltrack/internal/domain/audit"
	"kreltrack/internal/infrastructure/persistence/models"
	"kreltrack/internal/shared/db"
)

var _ audit.Repository = (*AuditRepository)(nil)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record must be called with the write's transaction context.
func (r *AuditRepository) Record(ctx context.Context, entry audit.Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}

	model := &models.AuditLogModel{
		Entity:    entry.Entity,
		EntityKey: entry.EntityKey,
		Action:    entry.Action,
		Actor:     entry.Actor,
		Details:   datatypes.JSON(details),
		CreatedAt: at.UTC(),
	}
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// History returns the audit trail of one entity, oldest first.
func (r *AuditRepository) History(ctx context.Context, entity, key string) ([]audit.Entry, error) {
	var rows []models.AuditLogModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("entity = ? AND entity_key = ?", entity, key).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	out := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		entry := audit.Entry{
			Entity:    row.Entity,
			EntityKey: row.EntityKey,
			Action:    row.Action,
			Actor:     row.Actor,
			At:        row.CreatedAt,
		}
		if len(row.Details) > 0 {
			if err := json.Unmarshal(row.Details, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to decode audit details: %w", err)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
