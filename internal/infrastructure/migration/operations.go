package migration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/orris-inc/userschema/internal/shared/logger"
)

// Conn is the ambient connection revisions run on. *sql.DB, *sql.Tx and a
// gorm ConnPool all satisfy it.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type liveOperations struct {
	conn    Conn
	dialect Dialect
	logger  logger.Interface
}

// NewOperations returns Operations that execute DDL on conn.
func NewOperations(conn Conn, dialect Dialect, log logger.Interface) Operations {
	return &liveOperations{conn: conn, dialect: dialect, logger: log}
}

// AddColumn and DropColumn send the DDL as is; a duplicate or missing column
// comes back as the driver's own error.
func (o *liveOperations) AddColumn(ctx context.Context, table string, column Column) error {
	return o.exec(ctx, o.dialect.AddColumnSQL(table, column))
}

func (o *liveOperations) DropColumn(ctx context.Context, table, column string) error {
	return o.exec(ctx, o.dialect.DropColumnSQL(table, column))
}

func (o *liveOperations) exec(ctx context.Context, stmt string) error {
	o.logger.Debugw("executing ddl", "sql", stmt)
	_, err := o.conn.ExecContext(ctx, stmt)
	return err
}

// TableColumns lists the columns of table in declaration order. A missing
// table surfaces the driver's error.
func TableColumns(ctx context.Context, conn Conn, dialect Dialect, table string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", dialect.Quote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return columns, rows.Err()
}

// Script records the DDL a revision would run without touching a database.
type Script struct {
	dialect    Dialect
	Statements []string
}

// NewScript returns an empty Script for dialect.
func NewScript(dialect Dialect) *Script {
	return &Script{dialect: dialect}
}

func (s *Script) AddColumn(_ context.Context, table string, column Column) error {
	s.Statements = append(s.Statements, s.dialect.AddColumnSQL(table, column))
	return nil
}

func (s *Script) DropColumn(_ context.Context, table, column string) error {
	s.Statements = append(s.Statements, s.dialect.DropColumnSQL(table, column))
	return nil
}

// Comment appends an SQL comment line.
func (s *Script) Comment(format string, args ...any) {
	s.Statements = append(s.Statements, "-- "+fmt.Sprintf(format, args...))
}

// String renders the script with one terminated statement per line.
func (s *Script) String() string {
	var b strings.Builder
	for _, stmt := range s.Statements {
		b.WriteString(stmt)
		if !strings.HasPrefix(stmt, "--") {
			b.WriteByte(';')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
