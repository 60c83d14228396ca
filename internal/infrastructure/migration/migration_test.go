package migration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kreltrack/internal/infrastructure/database"
	"kreltrack/internal/infrastructure/persistence/models"
	"kreltrack/internal/shared/config"
	"kreltrack/internal/shared/logger"
)

func openTestDB(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	return &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "kreltrack.db"),
	}
}

func TestGooseStrategyCreatesSchema(t *testing.T) {
	cfg := openTestDB(t)
	log := logger.NewDiscard()
	db, err := database.Open(cfg, log)
	require.NoError(t, err)
	defer database.Close(db)

	manager := NewManager(cfg.Driver, log)
	assert.Equal(t, "goose", manager.GetStrategy().GetName())

	ctx := context.Background()
	require.NoError(t, manager.Migrate(ctx, db))
	// second run is a no-op
	require.NoError(t, manager.Migrate(ctx, db))

	for _, m := range AutoMigrateModels() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}

	gs := manager.GetStrategy().(*GooseStrategy)
	version, err := gs.GetVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.True(t, db.Migrator().HasColumn(&models.RequestModel{}, "XSectionResult"))

	require.NoError(t, gs.MigrateDown(ctx, db, 1))
	assert.True(t, db.Migrator().HasTable(&models.RequestModel{}))
	assert.False(t, db.Migrator().HasColumn(&models.RequestModel{}, "XSectionResult"))

	require.NoError(t, gs.MigrateDown(ctx, db, 1))
	assert.False(t, db.Migrator().HasTable(&models.RequestModel{}))
}

func TestAutoMigrateFallbackForUnscriptedDriver(t *testing.T) {
	manager := NewManager("sqlserver", logger.NewDiscard())
	assert.Equal(t, "gorm_auto_migrate", manager.GetStrategy().GetName())
	assert.Contains(t, manager.GetStrategyInfo()["description"], "AutoMigrate")
}

func TestGormAutoMigrateStrategy(t *testing.T) {
	cfg := openTestDB(t)
	log := logger.NewDiscard()
	db, err := database.Open(cfg, log)
	require.NoError(t, err)
	defer database.Close(db)

	s := NewGormAutoMigrateStrategy(log)
	require.NoError(t, s.Migrate(context.Background(), db))
	assert.True(t, db.Migrator().HasTable("requests"))
	assert.True(t, db.Migrator().HasIndex(&models.LookupEntryModel{}, "idx_lookup_table_code"))
}
