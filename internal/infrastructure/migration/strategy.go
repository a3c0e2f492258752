package migration

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/orris-inc/userschema/internal/shared/constants"
	"github.com/orris-inc/userschema/internal/shared/errors"
	"github.com/orris-inc/userschema/internal/shared/logger"
)

// Strategy defines the interface for different migration strategies
type Strategy interface {
	// Migrate applies every pending revision
	Migrate(ctx context.Context, db *gorm.DB) error
	// Rollback reverts the last steps revisions
	Rollback(ctx context.Context, db *gorm.DB, steps int) error
	// Status reports which revisions are applied
	Status(ctx context.Context, db *gorm.DB) ([]RevisionStatus, error)
	// GetName returns the strategy name
	GetName() string
}

// RevisionStrategy runs revisions with the built-in Runner.
type RevisionStrategy struct {
	registry *Registry
	opts     []RunnerOption
}

func NewRevisionStrategy(registry *Registry, opts ...RunnerOption) *RevisionStrategy {
	return &RevisionStrategy{registry: registry, opts: opts}
}

// Runner builds a runner bound to db.
func (s *RevisionStrategy) Runner(db *gorm.DB) (*Runner, error) {
	return NewRunner(db, s.registry, s.opts...)
}

func (s *RevisionStrategy) Migrate(ctx context.Context, db *gorm.DB) error {
	runner, err := s.Runner(db)
	if err != nil {
		return err
	}
	return runner.Upgrade(ctx, constants.TargetHead)
}

func (s *RevisionStrategy) Rollback(ctx context.Context, db *gorm.DB, steps int) error {
	runner, err := s.Runner(db)
	if err != nil {
		return err
	}
	return runner.Downgrade(ctx, fmt.Sprintf("-%d", steps))
}

func (s *RevisionStrategy) Status(ctx context.Context, db *gorm.DB) ([]RevisionStatus, error) {
	runner, err := s.Runner(db)
	if err != nil {
		return nil, err
	}
	return runner.History(ctx)
}

func (s *RevisionStrategy) GetName() string {
	return constants.StrategyRevision
}

// versionGate keeps the revision version table in step with strategies that
// track their own numeric versions. Numeric version v maps to chain position
// v-1; version 0 is the registry base.
type versionGate struct {
	registry *Registry
	store    *VersionStore
}

func newVersionGate(registry *Registry, versionTable string) versionGate {
	if versionTable == "" {
		versionTable = constants.TableSchemaRevision
	}
	return versionGate{registry: registry, store: NewVersionStore(versionTable)}
}

// checkRoot refuses to apply the root revision unless the external base it
// revises has been recorded.
func (g versionGate) checkRoot(ctx context.Context, db *gorm.DB) error {
	if g.registry.Base() == "" {
		return nil
	}
	tx := db.WithContext(ctx)
	if err := g.store.Ensure(tx); err != nil {
		return err
	}
	current, err := g.store.Current(tx)
	if err != nil {
		return err
	}
	switch {
	case current == "":
		return baseNotRecorded(g.registry)
	case current != g.registry.Base():
		return errors.NewOrderingError("recorded revision does not match the base",
			fmt.Sprintf("recorded %s, %s expects %s", current, g.registry.Revisions()[0].ID, g.registry.Base()))
	}
	return nil
}

// record stores the revision matching numeric version v.
func (g versionGate) record(ctx context.Context, db *gorm.DB, v int64) error {
	tx := db.WithContext(ctx)
	if err := g.store.Ensure(tx); err != nil {
		return err
	}
	return g.store.Set(tx, g.registry.versionAt(int(v)-1))
}

// GooseStrategy exposes revisions as goose Go migrations. The goose version
// of a revision is its chain position plus one.
type GooseStrategy struct {
	registry *Registry
	gate     versionGate
	logger   logger.Interface
}

func NewGooseStrategy(registry *Registry, versionTable string) *GooseStrategy {
	return &GooseStrategy{
		registry: registry,
		gate:     newVersionGate(registry, versionTable),
		logger:   logger.WithComponent("migration.goose"),
	}
}

// provider builds a goose provider over db. The provider is not closed by
// callers since Close would also close db.
func (s *GooseStrategy) provider(db *gorm.DB) (*goose.Provider, error) {
	dialect, err := ParseDialect(db.Dialector.Name())
	if err != nil {
		return nil, err
	}

	var gooseDialect goose.Dialect
	switch dialect {
	case DialectMySQL:
		gooseDialect = goose.DialectMySQL
	case DialectPostgres:
		gooseDialect = goose.DialectPostgres
	case DialectSQLite:
		gooseDialect = goose.DialectSQLite3
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	revisions := s.registry.Revisions()
	migrations := make([]*goose.Migration, 0, len(revisions))
	for i, rev := range revisions {
		migrations = append(migrations, goose.NewGoMigration(int64(i+1),
			&goose.GoFunc{RunTx: func(ctx context.Context, tx *sql.Tx) error {
				s.logger.Infow("running upgrade", "revision", rev.ID)
				return rev.Upgrade(ctx, NewOperations(tx, dialect, s.logger))
			}},
			&goose.GoFunc{RunTx: func(ctx context.Context, tx *sql.Tx) error {
				s.logger.Infow("running downgrade", "revision", rev.ID)
				return rev.Downgrade(ctx, NewOperations(tx, dialect, s.logger))
			}},
		))
	}

	return goose.NewProvider(gooseDialect, sqlDB, nil,
		goose.WithGoMigrations(migrations...),
		goose.WithDisableGlobalRegistry(true),
	)
}

func (s *GooseStrategy) Migrate(ctx context.Context, db *gorm.DB) error {
	provider, err := s.provider(db)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	currentVersion, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if currentVersion == 0 {
		if err := s.gate.checkRoot(ctx, db); err != nil {
			return err
		}
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	finalVersion, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}
	if err := s.gate.record(ctx, db, finalVersion); err != nil {
		return err
	}

	s.logger.Infow("goose migration completed",
		"from_version", currentVersion,
		"to_version", finalVersion,
		"applied", len(results))
	return nil
}

func (s *GooseStrategy) Rollback(ctx context.Context, db *gorm.DB, steps int) error {
	provider, err := s.provider(db)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	for i := 0; i < steps; i++ {
		if _, err := provider.Down(ctx); err != nil {
			return fmt.Errorf("failed to run down migration: %w", err)
		}
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	return s.gate.record(ctx, db, version)
}

func (s *GooseStrategy) Status(ctx context.Context, db *gorm.DB) ([]RevisionStatus, error) {
	provider, err := s.provider(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	revisions := s.registry.Revisions()
	out := make([]RevisionStatus, 0, len(statuses))
	for _, st := range statuses {
		pos := int(st.Source.Version) - 1
		if pos < 0 || pos >= len(revisions) {
			continue
		}
		out = append(out, RevisionStatus{
			Revision: revisions[pos],
			Position: pos,
			Applied:  st.State == goose.StateApplied,
			Current:  st.Source.Version == current,
		})
	}
	return out, nil
}

func (s *GooseStrategy) GetName() string {
	return constants.StrategyGoose
}

// GolangMigrateStrategy renders revisions to SQL scripts and applies them
// with golang-migrate.
type GolangMigrateStrategy struct {
	registry    *Registry
	scriptsPath string
	gate        versionGate
	logger      logger.Interface
}

func NewGolangMigrateStrategy(registry *Registry, scriptsPath, versionTable string) *GolangMigrateStrategy {
	return &GolangMigrateStrategy{
		registry:    registry,
		scriptsPath: scriptsPath,
		gate:        newVersionGate(registry, versionTable),
		logger:      logger.WithComponent("migration.golang-migrate"),
	}
}

// createMigrateInstance renders the scripts for db's dialect and opens a
// migrate instance on them. The returned release func frees the script
// source and, on mysql, the dedicated connection; it leaves db open.
func (s *GolangMigrateStrategy) createMigrateInstance(ctx context.Context, db *gorm.DB) (*migrate.Migrate, func(), error) {
	dialect, err := ParseDialect(db.Dialector.Name())
	if err != nil {
		return nil, nil, err
	}

	if _, err := WriteScripts(s.registry, dialect, s.scriptsPath); err != nil {
		return nil, nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	src, err := (&file.File{}).Open("file://" + s.scriptsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open scripts: %w", err)
	}

	var driver database.Driver
	closeDriver := false
	switch dialect {
	case DialectMySQL:
		// WithConnection leaves the pool alone on Close, unlike WithInstance
		var conn *sql.Conn
		conn, err = sqlDB.Conn(ctx)
		if err == nil {
			driver, err = mysql.WithConnection(ctx, conn, &mysql.Config{})
			if err != nil {
				_ = conn.Close()
			}
		}
		closeDriver = true
	case DialectSQLite:
		// the sqlite driver's Close closes the shared *sql.DB
		driver, err = sqlite3.WithInstance(sqlDB, &sqlite3.Config{})
	default:
		err = fmt.Errorf("golang-migrate strategy does not support %s", dialect)
	}
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("failed to create %s driver: %w", dialect, err)
	}

	release := func() {
		if err := src.Close(); err != nil {
			s.logger.Warnw("failed to close script source", "error", err)
		}
		if closeDriver {
			if err := driver.Close(); err != nil {
				s.logger.Warnw("failed to release migrate connection", "error", err)
			}
		}
	}

	m, err := migrate.NewWithInstance("file", src, string(dialect), driver)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, release, nil
}

func (s *GolangMigrateStrategy) version(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (s *GolangMigrateStrategy) Migrate(ctx context.Context, db *gorm.DB) error {
	m, release, err := s.createMigrateInstance(ctx, db)
	if err != nil {
		return err
	}
	defer release()

	currentVersion, dirty, err := s.version(m)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		s.logger.Warnw("database is in dirty state, please fix manually", "version", currentVersion)
		return fmt.Errorf("database is in dirty state at version %d", currentVersion)
	}
	if currentVersion == 0 {
		if err := s.gate.checkRoot(ctx, db); err != nil {
			return err
		}
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	finalVersion, _, err := s.version(m)
	if err != nil {
		return fmt.Errorf("failed to get final migration version: %w", err)
	}
	if err := s.gate.record(ctx, db, int64(finalVersion)); err != nil {
		return err
	}

	s.logger.Infow("golang-migrate migration completed",
		"from_version", currentVersion,
		"to_version", finalVersion)
	return nil
}

func (s *GolangMigrateStrategy) Rollback(ctx context.Context, db *gorm.DB, steps int) error {
	m, release, err := s.createMigrateInstance(ctx, db)
	if err != nil {
		return err
	}
	defer release()

	if err := m.Steps(-steps); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run down migrations: %w", err)
	}

	version, _, err := s.version(m)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	return s.gate.record(ctx, db, int64(version))
}

func (s *GolangMigrateStrategy) Status(ctx context.Context, db *gorm.DB) ([]RevisionStatus, error) {
	m, release, err := s.createMigrateInstance(ctx, db)
	if err != nil {
		return nil, err
	}
	defer release()

	version, _, err := s.version(m)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	}

	revisions := s.registry.Revisions()
	out := make([]RevisionStatus, 0, len(revisions))
	for i, rev := range revisions {
		out = append(out, RevisionStatus{
			Revision: rev,
			Position: i,
			Applied:  uint(i+1) <= version,
			Current:  uint(i+1) == version,
		})
	}
	return out, nil
}

func (s *GolangMigrateStrategy) GetName() string {
	return constants.StrategyGolangMigrate
}
