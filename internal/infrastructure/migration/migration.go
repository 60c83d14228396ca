package migration

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"kreltrack/internal/shared/logger"
)

// Manager handles database migrations with different strategies
type Manager struct {
	strategy Strategy
	logger   logger.Interface
}

// NewManager chooses versioned scripts where they exist for the driver and
// falls back to model-derived schema otherwise.
func NewManager(driver string, log logger.Interface) *Manager {
	var strategy Strategy
	if gs, err := NewGooseStrategy(driver, log); err == nil {
		strategy = gs
	} else {
		strategy = NewGormAutoMigrateStrategy(log)
	}
	return NewManagerWithStrategy(strategy, log)
}

func NewManagerWithStrategy(strategy Strategy, log logger.Interface) *Manager {
	return &Manager{
		strategy: strategy,
		logger:   log.With("component", "migration.manager"),
	}
}

// Migrate executes the configured migration strategy
func (m *Manager) Migrate(ctx context.Context, db *gorm.DB) error {
	m.logger.Infow("starting database migration", "strategy", m.strategy.GetName())

	if err := m.strategy.Migrate(ctx, db); err != nil {
		m.logger.Errorw("migration failed", "strategy", m.strategy.GetName(), "error", err)
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.GetName(), err)
	}

	m.logger.Infow("database migration completed successfully", "strategy", m.strategy.GetName())
	return nil
}

func (m *Manager) GetStrategy() Strategy {
	return m.strategy
}

// GetStrategyInfo returns information about the current strategy
func (m *Manager) GetStrategyInfo() map[string]string {
	return map[string]string{
		"name":        m.strategy.GetName(),
		"description": getStrategyDescription(m.strategy.GetName()),
	}
}

func getStrategyDescription(strategyName string) string {
	switch strategyName {
	case "gorm_auto_migrate":
		return "GORM AutoMigrate - schema derived from the persistence models"
	case "goose":
		return "goose - versioned SQL scripts embedded in the binary"
	default:
		return "Unknown migration strategy"
	}
}
