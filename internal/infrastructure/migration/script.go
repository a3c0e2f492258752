package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orris-inc/userschema/internal/shared/constants"
)

// OfflineSQL renders the DDL that moves a database from one revision to
// another without connecting to it. Empty from means base, empty to means
// head; the direction follows from their order.
func OfflineSQL(registry *Registry, dialect Dialect, from, to string) (*Script, error) {
	if from == "" {
		from = constants.TargetBase
	}
	if to == "" {
		to = constants.TargetHead
	}

	start, err := registry.Resolve(from)
	if err != nil {
		return nil, err
	}
	end, err := registry.Resolve(to)
	if err != nil {
		return nil, err
	}

	script := NewScript(dialect)
	ctx := context.Background()

	for i := start + 1; i <= end; i++ {
		rev := registry.chain[i]
		script.Comment("Running upgrade %s -> %s, %s", rev.DownRevision, rev.ID, rev.Message)
		if err := rev.Upgrade(ctx, script); err != nil {
			return nil, fmt.Errorf("render upgrade %s: %w", rev.ID, err)
		}
	}
	for i := start; i > end; i-- {
		rev := registry.chain[i]
		script.Comment("Running downgrade %s -> %s, %s", rev.ID, rev.DownRevision, rev.Message)
		if err := rev.Downgrade(ctx, script); err != nil {
			return nil, fmt.Errorf("render downgrade %s: %w", rev.ID, err)
		}
	}
	return script, nil
}

// ScriptFileName is the golang-migrate file name for the revision at
// chain position pos.
func ScriptFileName(pos int, rev *Revision, dir string) string {
	return fmt.Sprintf("%06d_%s.%s.sql", pos+1, rev.Slug(), dir)
}

// WriteScripts renders every revision as a golang-migrate up/down pair in
// dir. Versions follow chain position, starting at 1.
func WriteScripts(registry *Registry, dialect Dialect, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scripts directory: %w", err)
	}

	ctx := context.Background()
	var written []string
	for i, rev := range registry.chain {
		up := NewScript(dialect)
		up.Comment("Revision %s: %s", rev.ID, rev.Message)
		if err := rev.Upgrade(ctx, up); err != nil {
			return nil, fmt.Errorf("render upgrade %s: %w", rev.ID, err)
		}

		down := NewScript(dialect)
		down.Comment("Rollback %s: %s", rev.ID, rev.Message)
		if err := rev.Downgrade(ctx, down); err != nil {
			return nil, fmt.Errorf("render downgrade %s: %w", rev.ID, err)
		}

		for _, f := range []struct {
			direction string
			script    *Script
		}{{"up", up}, {"down", down}} {
			path := filepath.Join(dir, ScriptFileName(i, rev, f.direction))
			if err := os.WriteFile(path, []byte(f.script.String()), 0644); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", path, err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}
