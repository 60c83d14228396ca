package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type counterRow struct {
	ID    uint `gorm:"primaryKey"`
	Value int
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&counterRow{}))
	return gdb
}

func TestRunInTransactionRollsBack(t *testing.T) {
	gdb := setupDB(t)
	tm := NewTransactionManager(gdb)

	boom := errors.New("boom")
	err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		require.NoError(t, GetTxFromContext(ctx, gdb).Create(&counterRow{Value: 1}).Error)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, gdb.Model(&counterRow{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunInTransactionJoinsOuter(t *testing.T) {
	gdb := setupDB(t)
	tm := NewTransactionManager(gdb)

	err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		outer := GetTxFromContext(ctx, gdb)
		return tm.RunInTransaction(ctx, func(inner context.Context) error {
			assert.Same(t, outer, GetTxFromContext(inner, gdb))
			return outer.Create(&counterRow{Value: 2}).Error
		})
	})
	require.NoError(t, err)

	var row counterRow
	require.NoError(t, gdb.First(&row).Error)
	assert.Equal(t, 2, row.Value)
	assert.False(t, InTransaction(context.Background()))
}
