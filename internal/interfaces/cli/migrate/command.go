package migrate

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/orris-inc/userschema/internal/infrastructure/config"
	"github.com/orris-inc/userschema/internal/infrastructure/database"
	"github.com/orris-inc/userschema/internal/infrastructure/migration"
	"github.com/orris-inc/userschema/internal/infrastructure/persistence/migrations"
	"github.com/orris-inc/userschema/internal/shared/constants"
	"github.com/orris-inc/userschema/internal/shared/logger"
)

var (
	env        string
	configPath string
	strategy   string
	name       string
	upTarget   string
	downTarget string
	from       string
	to         string
	dialect    string
	dir        string
	steps      int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage schema revisions: apply, revert, stamp, inspect, render offline SQL and create new revision files.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.PersistentFlags().StringVarP(&strategy, "strategy", "s", "", "Migration strategy override (revision, goose, golang_migrate)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newCurrentCommand(),
		newHistoryCommand(),
		newStampCommand(),
		newCreateCommand(),
		newSQLCommand(),
		newRenderCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending revisions",
		Long:  `Apply pending revisions up to --to (default head).`,
		RunE:  runUp,
	}
	cmd.Flags().StringVarP(&upTarget, "to", "t", constants.TargetHead, "Target revision (revision strategy only)")
	return cmd
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert revisions",
		Long:  `Revert the last --steps revisions, or down to --to (revision strategy only).`,
		RunE:  runDown,
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of revisions to revert")
	cmd.Flags().StringVarP(&downTarget, "to", "t", "", "Target revision or base")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show revision status",
		Long:  `Display every revision with whether it is applied to the database.`,
		RunE:  runStatus,
	}
}

func newCurrentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the recorded revision",
		RunE:  runCurrent,
	}
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List revisions from base to head",
		RunE:  runHistory,
	}
}

func newStampCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stamp <revision>",
		Short: "Record a revision without running it",
		Long:  `Record the given revision (head, base, or an id) in the version table without executing any revision.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runStamp,
	}
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new revision",
		Long:  `Create a revision file revising the current head.`,
		RunE:  runCreate,
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Revision message (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSQLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Print the SQL for a revision range",
		Long:  `Render the DDL between two revisions without connecting to a database.`,
		RunE:  runSQL,
	}
	cmd.Flags().StringVar(&from, "from", constants.TargetBase, "Starting revision")
	cmd.Flags().StringVarP(&to, "to", "t", constants.TargetHead, "Target revision")
	cmd.Flags().StringVarP(&dialect, "dialect", "d", "", "SQL dialect (default: configured driver)")
	return cmd
}

func newRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write golang-migrate SQL scripts",
		Long:  `Render every revision as numbered up/down SQL scripts.`,
		RunE:  runRender,
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (default: migration.scripts_path)")
	cmd.Flags().StringVarP(&dialect, "dialect", "d", "", "SQL dialect (default: configured driver)")
	return cmd
}

func loadConfig() (*config.Config, logger.Interface, error) {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if strategy != "" {
		cfg.Migration.Strategy = strategy
		if err := config.Validate(cfg); err != nil {
			return nil, nil, err
		}
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, logger.WithComponent("cli.migrate"), nil
}

func initEnv() (*config.Config, *migration.Registry, logger.Interface, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	registry, err := migrations.Registry()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid revision history: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return cfg, registry, log, nil
}

// requireRevisionStrategy guards targets the goose and golang-migrate
// strategies cannot express.
func requireRevisionStrategy(cfg *config.Config, flag string) error {
	if cfg.Migration.Strategy != constants.StrategyRevision {
		return fmt.Errorf("%s is only supported with the %s strategy", flag, constants.StrategyRevision)
	}
	return nil
}

// newRunner binds a runner to the shared version table. Every strategy keeps
// that table current, so stamp and current work regardless of strategy.
func newRunner(cfg *config.Config, registry *migration.Registry, db *gorm.DB) (*migration.Runner, error) {
	return migration.NewRunner(db, registry,
		migration.WithVersionTable(cfg.Migration.VersionTable),
		migration.WithTransactionPerRevision(cfg.Migration.TransactionPerRevision),
	)
}

func newManager(cfg *config.Config, registry *migration.Registry) (*migration.Manager, error) {
	s, err := migration.NewStrategy(&cfg.Migration, registry)
	if err != nil {
		return nil, err
	}
	return migration.NewManager(s), nil
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, registry, log, err := initEnv()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer database.Close()

	ctx := cmd.Context()
	log.Infow("running up migrations", "environment", cfg.Env, "strategy", cfg.Migration.Strategy, "target", upTarget)

	if upTarget != constants.TargetHead {
		if err := requireRevisionStrategy(cfg, "--to"); err != nil {
			return err
		}
		runner, err := newRunner(cfg, registry, database.Get())
		if err != nil {
			return err
		}
		return runner.Upgrade(ctx, upTarget)
	}

	manager, err := newManager(cfg, registry)
	if err != nil {
		return err
	}
	return manager.Migrate(ctx, database.Get())
}

func runDown(cmd *cobra.Command, args []string) error {
	cfg, registry, log, err := initEnv()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer database.Close()

	ctx := cmd.Context()
	log.Infow("running down migrations", "environment", cfg.Env, "steps", steps, "target", downTarget)

	if downTarget != "" {
		if err := requireRevisionStrategy(cfg, "--to"); err != nil {
			return err
		}
		runner, err := newRunner(cfg, registry, database.Get())
		if err != nil {
			return err
		}
		return runner.Downgrade(ctx, downTarget)
	}

	manager, err := newManager(cfg, registry)
	if err != nil {
		return err
	}
	return manager.Rollback(ctx, database.Get(), steps)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, registry, _, err := initEnv()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer database.Close()

	ctx := cmd.Context()

	manager, err := newManager(cfg, registry)
	if err != nil {
		return err
	}
	statuses, err := manager.Status(ctx, database.Get())
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Migration Status:\n")
	fmt.Fprintf(out, "  Environment: %s\n", cfg.Env)
	fmt.Fprintf(out, "  Strategy:    %s\n\n", manager.GetStrategy().GetName())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REVISION\tDOWN REVISION\tSTATE\tMESSAGE")
	for _, st := range statuses {
		state := "pending"
		if st.Applied {
			state = "applied"
		}
		if st.Current {
			state += " (current)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Revision.ID, st.Revision.DownRevision, state, st.Revision.Message)
	}
	return w.Flush()
}

func runCurrent(cmd *cobra.Command, args []string) error {
	cfg, registry, _, err := initEnv()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer database.Close()

	runner, err := newRunner(cfg, registry, database.Get())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	current, err := runner.Current(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		current = "<none>"
	} else if current == registry.Head() {
		current += " (head)"
	}
	fmt.Fprintln(cmd.OutOrStdout(), current)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if _, _, err := loadConfig(); err != nil {
		return err
	}
	registry, err := migrations.Registry()
	if err != nil {
		return fmt.Errorf("invalid revision history: %w", err)
	}

	out := cmd.OutOrStdout()
	revisions := registry.Revisions()
	for i := len(revisions) - 1; i >= 0; i-- {
		rev := revisions[i]
		down := rev.DownRevision
		if down == "" {
			down = "<base>"
		}
		label := ""
		if rev.ID == registry.Head() {
			label = " (head)"
		}
		fmt.Fprintf(out, "%s -> %s%s, %s\n", down, rev.ID, label, rev.Message)
	}
	return nil
}

func runStamp(cmd *cobra.Command, args []string) error {
	cfg, registry, log, err := initEnv()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer database.Close()

	runner, err := newRunner(cfg, registry, database.Get())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log.Infow("stamping revision", "revision", args[0])
	return runner.Stamp(ctx, args[0])
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	registry, err := migrations.Registry()
	if err != nil {
		return fmt.Errorf("invalid revision history: %w", err)
	}

	generator := migration.NewGenerator(cfg.Migration.RevisionsPath)
	path, err := generator.CreateRevision(name, registry.Head())
	if err != nil {
		return fmt.Errorf("failed to create revision: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Revision created: %s\n", path)
	return nil
}

func resolveDialect(cfg *config.Config) (migration.Dialect, error) {
	if dialect != "" {
		return migration.ParseDialect(dialect)
	}
	return migration.ParseDialect(cfg.Database.Driver)
}

func runSQL(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := resolveDialect(cfg)
	if err != nil {
		return err
	}
	registry, err := migrations.Registry()
	if err != nil {
		return fmt.Errorf("invalid revision history: %w", err)
	}

	script, err := migration.OfflineSQL(registry, d, from, to)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), script.String())
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := resolveDialect(cfg)
	if err != nil {
		return err
	}
	registry, err := migrations.Registry()
	if err != nil {
		return fmt.Errorf("invalid revision history: %w", err)
	}

	outDir := dir
	if outDir == "" {
		outDir = cfg.Migration.ScriptsPath
	}
	written, err := migration.WriteScripts(registry, d, outDir)
	if err != nil {
		return err
	}

	log.Infow("scripts rendered", "dir", outDir, "files", len(written))
	for _, path := range written {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
