package migration

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/userschema/internal/shared/config"
	"github.com/orris-inc/userschema/internal/shared/constants"
	"github.com/orris-inc/userschema/internal/shared/logger"
)

// Manager handles database migrations with different strategies
type Manager struct {
	strategy Strategy
	logger   logger.Interface
}

// NewStrategy builds the strategy named in cfg.
func NewStrategy(cfg *config.MigrationConfig, registry *Registry) (Strategy, error) {
	switch cfg.Strategy {
	case constants.StrategyRevision, "":
		return NewRevisionStrategy(registry,
			WithVersionTable(cfg.VersionTable),
			WithTransactionPerRevision(cfg.TransactionPerRevision),
		), nil
	case constants.StrategyGoose:
		return NewGooseStrategy(registry, cfg.VersionTable), nil
	case constants.StrategyGolangMigrate:
		return NewGolangMigrateStrategy(registry, cfg.ScriptsPath, cfg.VersionTable), nil
	default:
		return nil, fmt.Errorf("unknown migration strategy %q", cfg.Strategy)
	}
}

// NewManager creates a new migration manager with a specific strategy
func NewManager(strategy Strategy) *Manager {
	return &Manager{
		strategy: strategy,
		logger:   logger.WithComponent("migration.manager"),
	}
}

// Migrate executes the configured migration strategy
func (m *Manager) Migrate(ctx context.Context, db *gorm.DB) error {
	m.logger.Infow("starting database migration", "strategy", m.strategy.GetName())

	if err := m.strategy.Migrate(ctx, db); err != nil {
		m.logger.Errorw("migration failed",
			"strategy", m.strategy.GetName(),
			"error", err)
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.GetName(), err)
	}

	m.logger.Infow("database migration completed successfully", "strategy", m.strategy.GetName())
	return nil
}

// Rollback reverts the last steps revisions
func (m *Manager) Rollback(ctx context.Context, db *gorm.DB, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}

	m.logger.Infow("starting rollback", "strategy", m.strategy.GetName(), "steps", steps)

	if err := m.strategy.Rollback(ctx, db, steps); err != nil {
		m.logger.Errorw("rollback failed",
			"strategy", m.strategy.GetName(),
			"error", err)
		return fmt.Errorf("rollback failed with strategy %s: %w", m.strategy.GetName(), err)
	}

	m.logger.Infow("rollback completed successfully", "strategy", m.strategy.GetName())
	return nil
}

// Status reports applied revisions
func (m *Manager) Status(ctx context.Context, db *gorm.DB) ([]RevisionStatus, error) {
	return m.strategy.Status(ctx, db)
}

// GetStrategy returns the current migration strategy
func (m *Manager) GetStrategy() Strategy {
	return m.strategy
}

// GetStrategyInfo returns information about the current strategy
func (m *Manager) GetStrategyInfo() map[string]interface{} {
	return map[string]interface{}{
		"name":        m.strategy.GetName(),
		"description": getStrategyDescription(m.strategy.GetName()),
	}
}

// getStrategyDescription returns a description for the given strategy
func getStrategyDescription(strategyName string) string {
	switch strategyName {
	case constants.StrategyRevision:
		return "Revision chain - linked revisions tracked in a single-row version table"
	case constants.StrategyGoose:
		return "goose - revisions run as goose Go migrations numbered by chain position"
	case constants.StrategyGolangMigrate:
		return "golang-migrate - revisions rendered to versioned SQL scripts"
	default:
		return "Unknown migration strategy"
	}
}
