// Package migrate runs scenario content migrations defined in YAML files and
// tracks which of them have been imported.
package migrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scenarioctl/scenarioctl/internal/database"
	"github.com/scenarioctl/scenarioctl/internal/scenario"
)

// MapTable records imported migrations.
const MapTable = "scenario_migrate_map"

const statusImported = "imported"

// Config configures a Runner.
type Config struct {
	// Conn is the target database (required).
	Conn *database.Conn

	// ScenariosDir is searched for <scenario>/migrations/*.yml (required).
	ScenariosDir string

	// Logger is for diagnostics (optional).
	Logger logrus.FieldLogger
}

// Runner is a database-backed scenario.MigrationRunner.
type Runner struct {
	config Config

	mu   sync.Mutex
	defs map[string]*Migration
}

var _ scenario.MigrationRunner = (*Runner)(nil)

// New creates a Runner.
func New(cfg Config) *Runner {
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		cfg.Logger = l
	}
	return &Runner{config: cfg}
}

// EnsureSchema creates the map table if it does not exist.
func (r *Runner) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	migration_id VARCHAR(255) NOT NULL PRIMARY KEY,
	status VARCHAR(32) NOT NULL,
	updated_at VARCHAR(64) NOT NULL
)`, MapTable)
	if _, err := r.config.Conn.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create %s: %w", MapTable, err)
	}
	return nil
}

// Instantiate looks up a migration by id.
func (r *Runner) Instantiate(_ context.Context, id string) (scenario.Migration, error) {
	return r.Lookup(id)
}

// Definitions returns every known migration keyed by id.
func (r *Runner) Definitions() (map[string]*Migration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.defs == nil {
		defs, err := loadDefinitions(r.config.ScenariosDir)
		if err != nil {
			return nil, err
		}
		r.defs = defs
	}
	return r.defs, nil
}

// ClearDefinitionCache forces definitions to be re-read on next use.
func (r *Runner) ClearDefinitionCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs = nil
}

// ClearCache is ClearDefinitionCache under the name cache flushers expect.
func (r *Runner) ClearCache() { r.ClearDefinitionCache() }

// Imported reports whether the migration has been imported.
func (r *Runner) Imported(ctx context.Context, id string) (bool, error) {
	conn := r.config.Conn
	q := conn.Dialect.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE migration_id = ? AND status = ?", MapTable))

	var n int
	if err := conn.DB.QueryRowContext(ctx, q, id, statusImported).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to read %s: %w", MapTable, err)
	}
	return n > 0, nil
}

// RunForward executes the migration's up SQL and marks it imported. An
// already imported migration is left alone.
func (r *Runner) RunForward(ctx context.Context, m scenario.Migration) error {
	mig, err := r.resolve(m)
	if err != nil {
		return err
	}

	imported, err := r.Imported(ctx, mig.ID())
	if err != nil {
		return err
	}
	log := r.config.Logger.WithFields(logrus.Fields{"migration": mig.ID(), "path": mig.Path()})
	if imported {
		log.Debug("already imported")
		return nil
	}

	mark := r.config.Conn.Dialect.Rebind(fmt.Sprintf(
		"INSERT INTO %s (migration_id, status, updated_at) VALUES (?, ?, ?)", MapTable))
	err = r.exec(ctx, mig.Up(), mark, mig.ID(), statusImported, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("import %s: %w", mig.ID(), err)
	}

	log.Debug("imported")
	return nil
}

// RunBackward executes the migration's down SQL and removes its map row. A
// migration that was never imported is left alone.
func (r *Runner) RunBackward(ctx context.Context, m scenario.Migration) error {
	mig, err := r.resolve(m)
	if err != nil {
		return err
	}

	imported, err := r.Imported(ctx, mig.ID())
	if err != nil {
		return err
	}
	log := r.config.Logger.WithFields(logrus.Fields{"migration": mig.ID(), "path": mig.Path()})
	if !imported {
		log.Debug("not imported, nothing to roll back")
		return nil
	}

	unmark := r.config.Conn.Dialect.Rebind(fmt.Sprintf("DELETE FROM %s WHERE migration_id = ?", MapTable))
	if err := r.exec(ctx, mig.Down(), unmark, mig.ID()); err != nil {
		return fmt.Errorf("roll back %s: %w", mig.ID(), err)
	}

	log.Debug("rolled back")
	return nil
}

// Lookup returns the loaded definition with the given id.
func (r *Runner) Lookup(id string) (*Migration, error) {
	defs, err := r.Definitions()
	if err != nil {
		return nil, err
	}
	m, ok := defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMigrationNotFound, id)
	}
	return m, nil
}

func (r *Runner) resolve(m scenario.Migration) (*Migration, error) {
	if mig, ok := m.(*Migration); ok {
		return mig, nil
	}
	return r.Lookup(m.ID())
}

// exec runs script and then the bookkeeping statement in one transaction.
func (r *Runner) exec(ctx context.Context, script, bookkeeping string, args ...any) error {
	conn := r.config.Conn

	stmts, err := database.SplitStatements(conn.Dialect, script)
	if err != nil {
		return err
	}

	tx, err := conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, stmt := range stmts {
		r.config.Logger.WithField("sql", stmt).Trace("exec")
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update %s: %w", MapTable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
