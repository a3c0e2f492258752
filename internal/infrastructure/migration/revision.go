package migration

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// MigrateFunc applies one direction of a revision through op.
type MigrateFunc func(ctx context.Context, op Operations) error

// Revision is a versioned, ordered unit of schema change. DownRevision names
// the revision that must be applied immediately before this one.
type Revision struct {
	ID           string
	DownRevision string
	Message      string
	CreatedAt    time.Time
	Upgrade      MigrateFunc
	Downgrade    MigrateFunc
}

// Slug returns the message in a form usable in file names.
func (r *Revision) Slug() string {
	return slugify(r.Message)
}

func slugify(s string) string {
	var b strings.Builder
	underscore := false
	for _, c := range strings.ToLower(s) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(c)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// Operations is the schema-operation handle passed to revisions.
type Operations interface {
	AddColumn(ctx context.Context, table string, column Column) error
	DropColumn(ctx context.Context, table, column string) error
}

// Column describes a column to add.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

type typeKind int

const (
	kindText typeKind = iota + 1
	kindString
)

// ColumnType is a dialect independent column type.
type ColumnType struct {
	kind   typeKind
	length int
}

// Text is an unbounded variable-length text type.
func Text() ColumnType {
	return ColumnType{kind: kindText}
}

// String is a variable-length text type bounded to length characters.
func String(length int) ColumnType {
	return ColumnType{kind: kindString, length: length}
}
