package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/userschema/internal/shared/errors"
	"github.com/orris-inc/userschema/internal/shared/logger"
)

func TestLiveOperations(t *testing.T) {
	db := setupWidgetDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	ops := NewOperations(sqlDB, DialectSQLite, logger.Discard())
	ctx := context.Background()
	col := Column{Name: "color", Type: Text(), Nullable: true}

	require.NoError(t, ops.AddColumn(ctx, widgetsTable, col))
	assert.Equal(t, []string{"id", "color"}, widgetColumns(t, db))

	err = ops.AddColumn(ctx, widgetsTable, Column{Name: "COLOR", Type: Text(), Nullable: true})
	require.Error(t, err)
	assert.False(t, errors.IsAppError(err))
	assert.Contains(t, err.Error(), "duplicate column name")

	require.NoError(t, ops.DropColumn(ctx, widgetsTable, "color"))
	assert.Equal(t, []string{"id"}, widgetColumns(t, db))

	err = ops.DropColumn(ctx, widgetsTable, "color")
	require.Error(t, err)
	assert.False(t, errors.IsAppError(err))
	assert.Contains(t, err.Error(), "no such column")

	err = ops.AddColumn(ctx, "missing", col)
	require.Error(t, err)
	assert.False(t, errors.IsAppError(err))
}

func TestScript(t *testing.T) {
	script := NewScript(DialectMySQL)
	ctx := context.Background()

	script.Comment("Revision %s", "a1")
	require.NoError(t, script.AddColumn(ctx, "user", Column{Name: "oauth_provider", Type: Text(), Nullable: true}))
	require.NoError(t, script.DropColumn(ctx, "user", "oauth_provider"))

	assert.Equal(t,
		"-- Revision a1\n"+
			"ALTER TABLE `user` ADD COLUMN `oauth_provider` TEXT NULL;\n"+
			"ALTER TABLE `user` DROP COLUMN `oauth_provider`;\n",
		script.String())
}
