// Package testutil provides store fixtures for integration tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kreltrack/internal/infrastructure/database"
	"kreltrack/internal/infrastructure/migration"
	"kreltrack/internal/shared/config"
	"kreltrack/internal/shared/logger"
)

// NewSQLiteDB opens a private in-memory database with the full schema. The
// pool is pinned to one connection so every query sees the same database.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	log := logger.NewDiscard()
	gdb, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, log)
	require.NoError(t, err)

	strategy := migration.NewGormAutoMigrateStrategy(log)
	require.NoError(t, strategy.Migrate(context.Background(), gdb))

	t.Cleanup(func() { _ = database.Close(gdb) })
	return gdb
}
