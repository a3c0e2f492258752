package migration

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/orris-inc/userschema/internal/shared/constants"
	"github.com/orris-inc/userschema/internal/shared/errors"
	"github.com/orris-inc/userschema/internal/shared/logger"
)

// Runner applies and reverts registry revisions against a database, tracking
// progress in a version table.
type Runner struct {
	db          *gorm.DB
	registry    *Registry
	dialect     Dialect
	store       *VersionStore
	perRevision bool
	logger      logger.Interface
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithVersionTable overrides the version table name.
func WithVersionTable(table string) RunnerOption {
	return func(r *Runner) {
		if table != "" {
			r.store = NewVersionStore(table)
		}
	}
}

// WithTransactionPerRevision commits after every revision instead of once
// per run.
func WithTransactionPerRevision(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.perRevision = enabled
	}
}

// WithLogger sets the runner logger.
func WithLogger(log logger.Interface) RunnerOption {
	return func(r *Runner) {
		r.logger = log
	}
}

// RevisionStatus reports whether a revision is applied.
type RevisionStatus struct {
	Revision *Revision
	Position int
	Applied  bool
	Current  bool
}

type direction string

const (
	directionUp   direction = "upgrade"
	directionDown direction = "downgrade"
)

type step struct {
	rev       *Revision
	direction direction
	fn        MigrateFunc
	version   string
}

func NewRunner(db *gorm.DB, registry *Registry, opts ...RunnerOption) (*Runner, error) {
	dialect, err := ParseDialect(db.Dialector.Name())
	if err != nil {
		return nil, err
	}

	r := &Runner{
		db:       db,
		registry: registry,
		dialect:  dialect,
		store:    NewVersionStore(constants.TableSchemaRevision),
		logger:   logger.WithComponent("migration.runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Current returns the recorded revision, "" when nothing is recorded.
func (r *Runner) Current(ctx context.Context) (string, error) {
	db := r.db.WithContext(ctx)
	if err := r.store.Ensure(db); err != nil {
		return "", err
	}
	return r.store.Current(db)
}

// position maps the recorded revision to a chain position.
func (r *Runner) position(current string) (int, error) {
	if current == "" && r.registry.Base() != "" {
		return 0, baseNotRecorded(r.registry)
	}
	if current == "" {
		return -1, nil
	}
	pos, err := r.registry.Resolve(current)
	if err != nil {
		return 0, errors.NewNotFoundError("recorded revision is not known to this build", current)
	}
	return pos, nil
}

func baseNotRecorded(registry *Registry) error {
	return errors.NewOrderingError("no revision recorded",
		fmt.Sprintf("%s requires %s to be applied first; stamp it if the schema is already there",
			registry.Revisions()[0].ID, registry.Base()))
}

// Upgrade applies pending revisions up to target ("head" or a revision id).
func (r *Runner) Upgrade(ctx context.Context, target string) error {
	current, err := r.Current(ctx)
	if err != nil {
		return err
	}
	from, err := r.position(current)
	if err != nil {
		return err
	}
	to, err := r.registry.Resolve(target)
	if err != nil {
		return err
	}
	if to < from {
		return errors.NewOrderingError("upgrade target is behind the current revision",
			fmt.Sprintf("current %s, target %s; use downgrade", current, target))
	}

	var steps []step
	for _, rev := range r.registry.chain[from+1 : to+1] {
		steps = append(steps, step{rev: rev, direction: directionUp, fn: rev.Upgrade, version: rev.ID})
	}
	return r.run(ctx, steps)
}

// Downgrade reverts revisions down to target: "base", "-N" or a revision id.
func (r *Runner) Downgrade(ctx context.Context, target string) error {
	current, err := r.Current(ctx)
	if err != nil {
		return err
	}
	from, err := r.position(current)
	if err != nil {
		return err
	}

	var to int
	if strings.HasPrefix(target, "-") {
		n, convErr := strconv.Atoi(target[1:])
		if convErr != nil || n <= 0 {
			return errors.NewValidationError("relative downgrade target must be -N with N > 0", target)
		}
		to = from - n
		if to < -1 {
			return errors.NewOrderingError("not enough revisions applied",
				fmt.Sprintf("cannot step back %d from %q", n, current))
		}
	} else {
		if to, err = r.registry.Resolve(target); err != nil {
			return err
		}
	}
	if to > from {
		return errors.NewOrderingError("downgrade target is ahead of the current revision",
			fmt.Sprintf("current %s, target %s; use upgrade", current, target))
	}

	var steps []step
	for i := from; i > to; i-- {
		rev := r.registry.chain[i]
		steps = append(steps, step{rev: rev, direction: directionDown, fn: rev.Downgrade, version: rev.DownRevision})
	}
	return r.run(ctx, steps)
}

// Stamp records target as applied without running any revision.
func (r *Runner) Stamp(ctx context.Context, target string) error {
	pos, err := r.registry.Resolve(target)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if err := r.store.Ensure(db); err != nil {
		return err
	}

	version := r.registry.versionAt(pos)
	if err := db.Transaction(func(tx *gorm.DB) error {
		return r.store.Set(tx, version)
	}); err != nil {
		return err
	}

	r.logger.Infow("stamped revision", "revision", version)
	return nil
}

// History lists the chain with applied flags.
func (r *Runner) History(ctx context.Context) ([]RevisionStatus, error) {
	current, err := r.Current(ctx)
	if err != nil {
		return nil, err
	}
	pos, err := r.position(current)
	if errors.IsOrderingError(err) {
		pos = -1
	} else if err != nil {
		return nil, err
	}

	out := make([]RevisionStatus, 0, len(r.registry.chain))
	for i, rev := range r.registry.chain {
		out = append(out, RevisionStatus{
			Revision: rev,
			Position: i,
			Applied:  i <= pos,
			Current:  i == pos,
		})
	}
	return out, nil
}

func (r *Runner) run(ctx context.Context, steps []step) error {
	if len(steps) == 0 {
		r.logger.Infow("nothing to do, database already at target")
		return nil
	}

	db := r.db.WithContext(ctx)
	if r.perRevision {
		for _, s := range steps {
			if err := db.Transaction(func(tx *gorm.DB) error {
				return r.apply(ctx, tx, s)
			}); err != nil {
				return err
			}
		}
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, s := range steps {
			if err := r.apply(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Runner) apply(ctx context.Context, tx *gorm.DB, s step) error {
	r.logger.Infow("running "+string(s.direction),
		"revision", s.rev.ID,
		"down_revision", s.rev.DownRevision,
		"message", s.rev.Message)

	ops := NewOperations(tx.Statement.ConnPool, r.dialect, r.logger)
	if err := s.fn(ctx, ops); err != nil {
		r.logger.Errorw(string(s.direction)+" failed", "revision", s.rev.ID, "error", err)
		return fmt.Errorf("%s %s: %w", s.direction, s.rev.ID, err)
	}
	return r.store.Set(tx, s.version)
}
