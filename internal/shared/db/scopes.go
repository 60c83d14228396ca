package db

import (
	"gorm.io/gorm"
)

// NotDeleted filters out soft-deleted rows for raw Table()/Count() queries
// where gorm does not apply its soft delete clause automatically.
func NotDeleted() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("deleted_at IS NULL")
	}
}

// Paginate applies LIMIT/OFFSET when limit is positive.
func Paginate(limit, offset int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		if offset < 0 {
			offset = 0
		}
		return db.Limit(limit).Offset(offset)
	}
}
