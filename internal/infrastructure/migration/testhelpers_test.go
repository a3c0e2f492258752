package migration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const widgetsTable = "widgets"

func addColumnRevision(id, down, column string) *Revision {
	return &Revision{
		ID:           id,
		DownRevision: down,
		Message:      "add " + column + " to widgets",
		Upgrade: func(ctx context.Context, op Operations) error {
			return op.AddColumn(ctx, widgetsTable, Column{Name: column, Type: Text(), Nullable: true})
		},
		Downgrade: func(ctx context.Context, op Operations) error {
			return op.DropColumn(ctx, widgetsTable, column)
		},
	}
}

// widgetRevisions builds the chain a1 -> b2 -> c3, each adding one column.
func widgetRevisions() []*Revision {
	return []*Revision{
		addColumnRevision("a1", "", "color"),
		addColumnRevision("b2", "a1", "size"),
		addColumnRevision("c3", "b2", "weight"),
	}
}

func newWidgetRegistry(t *testing.T, revisions ...*Revision) *Registry {
	t.Helper()
	if len(revisions) == 0 {
		revisions = widgetRevisions()
	}
	registry, err := NewRegistry(revisions...)
	require.NoError(t, err)
	return registry
}

func setupWidgetDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "widgets.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(fmt.Sprintf(`CREATE TABLE %q (id INTEGER PRIMARY KEY)`, widgetsTable)).Error)
	return db
}

func widgetColumns(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	cols, err := TableColumns(context.Background(), sqlDB, DialectSQLite, widgetsTable)
	require.NoError(t, err)
	return cols
}
