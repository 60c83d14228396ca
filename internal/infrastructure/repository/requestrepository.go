package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"kreltrack/internal/domain/request"
	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/infrastructure/persistence/mappers"
	"kreltrack/internal/infrastructure/persistence/models"
	"kreltrack/internal/shared/db"
)

// allowedRequestOrderByFields whitelists ORDER BY columns.
var allowedRequestOrderByFields = map[string]bool{
	"number":       true,
	"requester":    true,
	"request_date": true,
	"factory":      true,
	"status":       true,
	"equipment":    true,
	"plan_start":   true,
	"actual_start": true,
	"created_at":   true,
	"updated_at":   true,
}

var _ request.Repository = (*RequestRepository)(nil)

type RequestRepository struct {
	db     *gorm.DB
	mapper mappers.RequestMapper
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{
		db:     db,
		mapper: mappers.NewRequestMapper(),
	}
}

func (r *RequestRepository) Create(ctx context.Context, req *request.Request) error {
	model := r.mapper.ToModel(req)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return req.SetID(model.ID)
}

// Update writes every column guarded by the previous version.
func (r *RequestRepository) Update(ctx context.Context, req *request.Request) error {
	model := r.mapper.ToModel(req)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Model(&models.RequestModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Select("*").
		Omit("id", "number", "created_at", "created_by", "deleted_at").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return request.ErrVersionConflict
	}
	return nil
}

func (r *RequestRepository) Delete(ctx context.Context, number string, hard bool) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if hard {
		tx = tx.Unscoped()
	}
	result := tx.Where("number = ?", number).Delete(&models.RequestModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return request.ErrNotFound
	}
	return nil
}

func (r *RequestRepository) GetByNumber(ctx context.Context, number string) (*request.Request, error) {
	var model models.RequestModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Where("number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, request.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find request: %w", err)
	}
	return r.mapper.ToDomain(&model)
}

func (r *RequestRepository) List(ctx context.Context, filter request.Filter) ([]*request.Request, error) {
	query := r.filtered(ctx, filter)

	sortBy := strings.ToLower(filter.SortBy)
	if sortBy != "" && allowedRequestOrderByFields[sortBy] {
		order := strings.ToUpper(filter.SortOrder)
		if order != "ASC" && order != "DESC" {
			order = "ASC"
		}
		query = query.Order(sortBy + " " + order)
	} else {
		query = query.Order("number ASC")
	}

	var rows []models.RequestModel
	if err := query.Scopes(db.Paginate(filter.Limit, filter.Offset)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return r.mapper.ToDomainList(rows)
}

func (r *RequestRepository) Count(ctx context.Context, filter request.Filter) (int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return total, nil
}

func (r *RequestRepository) CountByStatus(ctx context.Context) (map[vo.Status]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Model(&models.RequestModel{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count requests by status: %w", err)
	}

	out := make(map[vo.Status]int64, len(rows))
	for _, row := range rows {
		out[vo.Status(row.Status)] = row.Total
	}
	return out, nil
}

func (r *RequestRepository) DistinctRequesters(ctx context.Context) ([]string, error) {
	var names []string
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Model(&models.RequestModel{}).
		Distinct("requester").
		Where("requester <> ''").
		Order("requester ASC").
		Pluck("requester", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list requesters: %w", err)
	}
	return names, nil
}

// LastNumberForDay includes soft-deleted rows so a number is never issued twice.
func (r *RequestRepository) LastNumberForDay(ctx context.Context, day string) (string, error) {
	var numbers []string
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Unscoped().Model(&models.RequestModel{}).
		Where("number LIKE ?", day+"-%").
		Pluck("number", &numbers).Error; err != nil {
		return "", fmt.Errorf("failed to read request numbers: %w", err)
	}

	last, best := "", -1
	for _, n := range numbers {
		seq, err := request.SequenceOf(n)
		if err != nil {
			continue
		}
		if seq > best {
			last, best = n, seq
		}
	}
	return last, nil
}

func (r *RequestRepository) filtered(ctx context.Context, filter request.Filter) *gorm.DB {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.RequestModel{})

	if len(filter.Numbers) > 0 {
		query = query.Where("number IN ?", filter.Numbers)
	}
	if filter.Requester != "" {
		query = query.Where("requester = ?", filter.Requester)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.Factory != "" {
		query = query.Where("factory = ?", filter.Factory)
	}
	if filter.Project != "" {
		query = query.Where("project = ?", filter.Project)
	}
	if filter.Phase != "" {
		query = query.Where("phase = ?", filter.Phase)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if len(filter.Equipment) > 0 {
		query = query.Where("equipment IN ?", filter.Equipment)
	}
	if filter.From != nil {
		query = query.Where("request_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("request_date <= ?", *filter.To)
	}
	if filter.WindowStart != nil && filter.WindowEnd != nil {
		query = query.Where(
			"(plan_start BETWEEN ? AND ?) OR (actual_start BETWEEN ? AND ?)",
			*filter.WindowStart, *filter.WindowEnd, *filter.WindowStart, *filter.WindowEnd,
		)
	}
	if filter.Search != "" {
		like := "%" + escapeLike(filter.Search) + "%"
		query = query.Where(
			"(number LIKE ? ESCAPE '!' OR requester LIKE ? ESCAPE '!' OR detail LIKE ? ESCAPE '!' OR note LIKE ? ESCAPE '!')",
			like, like, like, like,
		)
	}
	return query
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
