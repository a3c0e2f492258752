package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/userschema/internal/shared/errors"
)

func TestOfflineSQL(t *testing.T) {
	registry := newWidgetRegistry(t)

	script, err := OfflineSQL(registry, DialectPostgres, "a1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-- Running upgrade a1 -> b2, add size to widgets",
		`ALTER TABLE "widgets" ADD COLUMN "size" TEXT NULL`,
		"-- Running upgrade b2 -> c3, add weight to widgets",
		`ALTER TABLE "widgets" ADD COLUMN "weight" TEXT NULL`,
	}, script.Statements)

	script, err = OfflineSQL(registry, DialectMySQL, "b2", "base")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-- Running downgrade b2 -> a1, add size to widgets",
		"ALTER TABLE `widgets` DROP COLUMN `size`",
		"-- Running downgrade a1 -> , add color to widgets",
		"ALTER TABLE `widgets` DROP COLUMN `color`",
	}, script.Statements)

	script, err = OfflineSQL(registry, DialectMySQL, "c3", "head")
	require.NoError(t, err)
	assert.Empty(t, script.Statements)

	_, err = OfflineSQL(registry, DialectMySQL, "zz", "")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestWriteScripts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scripts")

	written, err := WriteScripts(newWidgetRegistry(t), DialectMySQL, dir)
	require.NoError(t, err)
	require.Len(t, written, 6)
	assert.Equal(t, filepath.Join(dir, "000001_add_color_to_widgets.up.sql"), written[0])
	assert.Equal(t, filepath.Join(dir, "000001_add_color_to_widgets.down.sql"), written[1])

	down, err := os.ReadFile(written[5])
	require.NoError(t, err)
	assert.Equal(t, "-- Rollback c3: add weight to widgets\nALTER TABLE `widgets` DROP COLUMN `weight`;\n", string(down))
}
