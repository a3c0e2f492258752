package migration

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeStrategy struct {
	migrateErr error
	steps      int
}

func (f *fakeStrategy) Migrate(context.Context, *gorm.DB) error { return f.migrateErr }

func (f *fakeStrategy) Rollback(_ context.Context, _ *gorm.DB, steps int) error {
	f.steps = steps
	return nil
}

func (f *fakeStrategy) Status(context.Context, *gorm.DB) ([]RevisionStatus, error) {
	return nil, nil
}

func (f *fakeStrategy) GetName() string { return "fake" }

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("wraps strategy errors", func(t *testing.T) {
		cause := fmt.Errorf("duplicate column name: oauth_provider")
		m := NewManager(&fakeStrategy{migrateErr: cause})

		err := m.Migrate(ctx, nil)
		require.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "strategy fake")
	})

	t.Run("rollback requires positive steps", func(t *testing.T) {
		fake := &fakeStrategy{}
		m := NewManager(fake)

		assert.Error(t, m.Rollback(ctx, nil, 0))
		require.NoError(t, m.Rollback(ctx, nil, 2))
		assert.Equal(t, 2, fake.steps)
	})

	t.Run("strategy info", func(t *testing.T) {
		m := NewManager(NewGooseStrategy(newWidgetRegistry(t), ""))
		info := m.GetStrategyInfo()
		assert.Equal(t, "goose", info["name"])
		assert.Contains(t, info["description"], "goose")
		assert.Equal(t, "goose", m.GetStrategy().GetName())
	})
}
