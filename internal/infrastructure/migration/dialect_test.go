package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	for name, want := range map[string]Dialect{
		"mysql":      DialectMySQL,
		"postgres":   DialectPostgres,
		"PostgreSQL": DialectPostgres,
		"sqlite":     DialectSQLite,
		"sqlite3":    DialectSQLite,
	} {
		got, err := ParseDialect(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}

func TestDialect_Quote(t *testing.T) {
	assert.Equal(t, "`user`", DialectMySQL.Quote("user"))
	assert.Equal(t, "`we``ird`", DialectMySQL.Quote("we`ird"))
	assert.Equal(t, `"user"`, DialectPostgres.Quote("user"))
	assert.Equal(t, `"we""ird"`, DialectSQLite.Quote(`we"ird`))
}

func TestDialect_DDL(t *testing.T) {
	col := Column{Name: "oauth_provider", Type: Text(), Nullable: true}

	assert.Equal(t, "ALTER TABLE `user` ADD COLUMN `oauth_provider` TEXT NULL",
		DialectMySQL.AddColumnSQL("user", col))
	assert.Equal(t, `ALTER TABLE "user" ADD COLUMN "code" VARCHAR(16) NOT NULL`,
		DialectPostgres.AddColumnSQL("user", Column{Name: "code", Type: String(16)}))
	assert.Equal(t, `ALTER TABLE "user" DROP COLUMN "oauth_provider"`,
		DialectSQLite.DropColumnSQL("user", "oauth_provider"))
}

func TestRevision_Slug(t *testing.T) {
	rev := &Revision{Message: "Add OAuth refresh-token support to user table!"}
	assert.Equal(t, "add_oauth_refresh_token_support_to_user_table", rev.Slug())
}
