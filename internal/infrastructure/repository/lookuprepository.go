package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"kreltrack/internal/domain/lookup"
	"kreltrack/internal/infrastructure/persistence/mappers"
	"kreltrack/internal/infrastructure/persistence/models"
	"kreltrack/internal/shared/db"
	apperrors "kreltrack/internal/shared/errors"
)

var _ lookup.Repository = (*LookupRepository)(nil)

type LookupRepository struct {
	db *gorm.DB
}

func NewLookupRepository(db *gorm.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

// ListEntries reads a table. Equipment entries are derived from the equipment table.
func (r *LookupRepository) ListEntries(ctx context.Context, table lookup.Table) ([]lookup.Entry, error) {
	if table == lookup.TableEquipment {
		equipment, err := r.ListEquipment(ctx, "")
		if err != nil {
			return nil, err
		}
		entries := make([]lookup.Entry, len(equipment))
		for i, e := range equipment {
			entries[i] = e.Entry()
		}
		return entries, nil
	}

	var rows []models.LookupEntryModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("lookup_table = ?", table.String()).
		Order("sort_key ASC, label ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", table, err)
	}

	entries := make([]lookup.Entry, len(rows))
	for i := range rows {
		entries[i] = mappers.LookupEntryToDomain(&rows[i])
	}
	return entries, nil
}

func (r *LookupRepository) GetEntry(ctx context.Context, table lookup.Table, code string) (*lookup.Entry, error) {
	if table == lookup.TableEquipment {
		e, err := r.GetEquipment(ctx, code)
		if err != nil {
			return nil, err
		}
		entry := e.Entry()
		return &entry, nil
	}

	var row models.LookupEntryModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("lookup_table = ? AND code = ?", table.String(), code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lookup.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to find %s entry: %w", table, err)
	}
	entry := mappers.LookupEntryToDomain(&row)
	return &entry, nil
}

func (r *LookupRepository) CreateEntry(ctx context.Context, entry lookup.Entry) error {
	if entry.Table == lookup.TableEquipment {
		return fmt.Errorf("equipment entries are created through CreateEquipment")
	}
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(mappers.LookupEntryToModel(entry)).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return lookup.ErrEntryExists
		}
		return fmt.Errorf("failed to create %s entry: %w", entry.Table, err)
	}
	return nil
}

func (r *LookupRepository) UpdateEntry(ctx context.Context, entry lookup.Entry) error {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(&models.LookupEntryModel{}).
		Where("lookup_table = ? AND code = ?", entry.Table.String(), entry.Code).
		Updates(map[string]interface{}{
			"label":    entry.Label,
			"sort_key": entry.SortKey,
			"active":   entry.Active,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update %s entry: %w", entry.Table, result.Error)
	}
	if result.RowsAffected == 0 {
		return lookup.ErrEntryNotFound
	}
	return nil
}

func (r *LookupRepository) ListEquipment(ctx context.Context, factory string) ([]lookup.Equipment, error) {
	var rows []models.EquipmentModel
	query := db.GetTxFromContext(ctx, r.db).Order("control_no ASC")
	if factory != "" {
		query = query.Where("factory = ?", factory)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}

	out := make([]lookup.Equipment, len(rows))
	for i := range rows {
		out[i] = mappers.EquipmentToDomain(&rows[i])
	}
	return out, nil
}

func (r *LookupRepository) GetEquipment(ctx context.Context, controlNo string) (*lookup.Equipment, error) {
	var row models.EquipmentModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("control_no = ?", controlNo).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lookup.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to find equipment: %w", err)
	}
	e := mappers.EquipmentToDomain(&row)
	return &e, nil
}

func (r *LookupRepository) CreateEquipment(ctx context.Context, e lookup.Equipment) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(mappers.EquipmentToModel(e)).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return lookup.ErrEntryExists
		}
		return fmt.Errorf("failed to create equipment: %w", err)
	}
	return nil
}

func (r *LookupRepository) UpdateEquipment(ctx context.Context, e lookup.Equipment) error {
	model := mappers.EquipmentToModel(e)
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(&models.EquipmentModel{}).
		Where("control_no = ?", e.ControlNo).
		Select("name", "spec", "recipe1", "recipe2", "recipe3", "recipe4", "recipe5", "remark", "factory", "active").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update equipment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return lookup.ErrEntryNotFound
	}
	return nil
}

func (r *LookupRepository) DeleteEquipment(ctx context.Context, controlNo string) error {
	tx := db.GetTxFromContext(ctx, r.db)

	var refs int64
	if err := tx.Model(&models.RequestModel{}).Where("equipment = ?", controlNo).Count(&refs).Error; err != nil {
		return fmt.Errorf("failed to count equipment references: %w", err)
	}
	if refs > 0 {
		return lookup.ErrEquipmentInUse
	}

	result := tx.Where("control_no = ?", controlNo).Delete(&models.EquipmentModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete equipment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return lookup.ErrEntryNotFound
	}
	return nil
}

// MissingReferences returns the tables whose code is not an active entry.
// The request service calls it inside its write transaction as a backstop
// for references that went stale after validation.
func (r *LookupRepository) MissingReferences(ctx context.Context, refs map[lookup.Table]string) ([]lookup.Table, error) {
	var missing []lookup.Table
	for _, table := range lookup.AllTables() {
		code, ok := refs[table]
		if !ok || code == "" {
			continue
		}
		entry, err := r.GetEntry(ctx, table, code)
		if err != nil {
			if errors.Is(err, lookup.ErrEntryNotFound) {
				missing = append(missing, table)
				continue
			}
			return nil, err
		}
		if !entry.Active {
			missing = append(missing, table)
		}
	}
	return missing, nil
}
