package migration

import (
	"fmt"
	"strings"

	"github.com/orris-inc/userschema/internal/shared/constants"
)

// Dialect selects identifier quoting and type names for generated DDL.
type Dialect string

const (
	DialectMySQL    Dialect = constants.DriverMySQL
	DialectPostgres Dialect = constants.DriverPostgres
	DialectSQLite   Dialect = constants.DriverSQLite
)

// ParseDialect accepts a driver name as reported by gorm or the config.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql":
		return DialectMySQL, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", name)
	}
}

// Quote quotes an identifier, doubling any embedded quote character.
func (d Dialect) Quote(ident string) string {
	q := `"`
	if d == DialectMySQL {
		q = "`"
	}
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// TypeName renders a column type.
func (d Dialect) TypeName(t ColumnType) string {
	switch t.kind {
	case kindString:
		return fmt.Sprintf("VARCHAR(%d)", t.length)
	default:
		return "TEXT"
	}
}

// AddColumnSQL renders ALTER TABLE ... ADD COLUMN.
func (d Dialect) AddColumnSQL(table string, col Column) string {
	null := "NOT NULL"
	if col.Nullable {
		null = "NULL"
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s %s",
		d.Quote(table), d.Quote(col.Name), d.TypeName(col.Type), null)
}

// DropColumnSQL renders ALTER TABLE ... DROP COLUMN.
func (d Dialect) DropColumnSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.Quote(table), d.Quote(column))
}
