package migration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/userschema/internal/shared/config"
	"github.com/orris-inc/userschema/internal/shared/constants"
)

func appliedIDs(statuses []RevisionStatus) []string {
	var ids []string
	for _, st := range statuses {
		if st.Applied {
			ids = append(ids, st.Revision.ID)
		}
	}
	return ids
}

func TestStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy func(t *testing.T, registry *Registry) Strategy
	}{
		{
			name: constants.StrategyRevision,
			strategy: func(t *testing.T, registry *Registry) Strategy {
				return NewRevisionStrategy(registry)
			},
		},
		{
			name: constants.StrategyGoose,
			strategy: func(t *testing.T, registry *Registry) Strategy {
				return NewGooseStrategy(registry, "")
			},
		},
		{
			name: constants.StrategyGolangMigrate,
			strategy: func(t *testing.T, registry *Registry) Strategy {
				return NewGolangMigrateStrategy(registry, filepath.Join(t.TempDir(), "scripts"), "")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupWidgetDB(t)
			strategy := tt.strategy(t, newWidgetRegistry(t))
			ctx := context.Background()

			assert.Equal(t, tt.name, strategy.GetName())

			statuses, err := strategy.Status(ctx, db)
			require.NoError(t, err)
			assert.Empty(t, appliedIDs(statuses))

			require.NoError(t, strategy.Migrate(ctx, db))
			assert.Equal(t, []string{"id", "color", "size", "weight"}, widgetColumns(t, db))

			statuses, err = strategy.Status(ctx, db)
			require.NoError(t, err)
			assert.Equal(t, []string{"a1", "b2", "c3"}, appliedIDs(statuses))

			// nothing pending
			require.NoError(t, strategy.Migrate(ctx, db))

			require.NoError(t, strategy.Rollback(ctx, db, 2))
			assert.Equal(t, []string{"id", "color"}, widgetColumns(t, db))

			statuses, err = strategy.Status(ctx, db)
			require.NoError(t, err)
			assert.Equal(t, []string{"a1"}, appliedIDs(statuses))
		})
	}
}

func TestGolangMigrateStrategy_WritesScripts(t *testing.T) {
	db := setupWidgetDB(t)
	dir := filepath.Join(t.TempDir(), "scripts")
	strategy := NewGolangMigrateStrategy(newWidgetRegistry(t), dir, "")

	require.NoError(t, strategy.Migrate(context.Background(), db))

	up, err := os.ReadFile(filepath.Join(dir, "000002_add_size_to_widgets.up.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(up), `ALTER TABLE "widgets" ADD COLUMN "size" TEXT NULL;`)
}

func TestNewStrategy(t *testing.T) {
	registry := newWidgetRegistry(t)

	for _, name := range []string{constants.StrategyRevision, constants.StrategyGoose, constants.StrategyGolangMigrate} {
		strategy, err := NewStrategy(&config.MigrationConfig{Strategy: name, ScriptsPath: t.TempDir()}, registry)
		require.NoError(t, err)
		assert.Equal(t, name, strategy.GetName())
	}

	_, err := NewStrategy(&config.MigrationConfig{Strategy: "flyway"}, registry)
	assert.Error(t, err)
}
