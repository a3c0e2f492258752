package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Database drivers
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// Migration strategies
	StrategyRevision      = "revision"
	StrategyGoose         = "goose"
	StrategyGolangMigrate = "golang_migrate"

	// Revision targets understood by the runner
	TargetHead = "head"
	TargetBase = "base"

	// Database table names
	TableUser           = "user"
	TableSchemaRevision = "schema_revision"

	// user table OAuth columns
	ColumnOAuthRefreshToken = "oauth_refresh_token"
	ColumnOAuthProvider     = "oauth_provider"

	// Default paths, relative to the working directory
	DefaultScriptsPath   = "./internal/infrastructure/migration/scripts"
	DefaultRevisionsPath = "./internal/infrastructure/persistence/migrations"
)
