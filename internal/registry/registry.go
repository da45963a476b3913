// Package registry records which scenario modules and themes are installed.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scenarioctl/scenarioctl/internal/batch"
	"github.com/scenarioctl/scenarioctl/internal/database"
	"github.com/scenarioctl/scenarioctl/internal/scenario"
)

const (
	// Table holds one row per installed extension.
	Table = "scenario_extensions"

	installScript   = "install.sql"
	uninstallScript = "uninstall.sql"
)

// Kind distinguishes modules from themes.
type Kind string

const (
	KindModule Kind = "module"
	KindTheme  Kind = "theme"
)

var (
	// ErrModuleNotFound indicates the module directory does not exist.
	ErrModuleNotFound = errors.New("module not found")

	// ErrThemeNotFound indicates the theme directory does not exist.
	ErrThemeNotFound = errors.New("theme not found")
)

// Extension is an installed module or theme.
type Extension struct {
	Name        string
	Kind        Kind
	InstalledAt time.Time
}

// Config configures a Registry.
type Config struct {
	// Conn is the database holding the registry table (required).
	Conn *database.Conn

	// ModulesDir contains one directory per scenario module (required).
	ModulesDir string

	// ThemesDir contains one directory per theme.
	ThemesDir string

	// Logger is for diagnostics (optional).
	Logger logrus.FieldLogger
}

// Registry is a SQL-backed scenario.Installer.
type Registry struct {
	config Config
}

var _ scenario.Installer = (*Registry)(nil)

// New creates a Registry.
func New(cfg Config) *Registry {
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		cfg.Logger = l
	}
	return &Registry{config: cfg}
}

// EnsureSchema creates the registry table if it does not exist.
func (r *Registry) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name VARCHAR(255) NOT NULL,
	kind VARCHAR(16) NOT NULL,
	installed_at VARCHAR(64) NOT NULL,
	PRIMARY KEY (name, kind)
)`, Table)
	if _, err := r.config.Conn.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create %s: %w", Table, err)
	}
	return nil
}

// ModuleExists reports whether the module is installed.
func (r *Registry) ModuleExists(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, name, KindModule)
}

// ThemeExists reports whether the theme is installed.
func (r *Registry) ThemeExists(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, name, KindTheme)
}

// InstallModule records the module as installed and queues its install.sql,
// if any, as deferred work.
func (r *Registry) InstallModule(ctx context.Context, name string, q *batch.Queue) error {
	dir := filepath.Join(r.config.ModulesDir, name)
	if !isDir(dir) {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, dir)
	}

	if err := r.insert(ctx, name, KindModule); err != nil {
		return err
	}

	script := filepath.Join(dir, installScript)
	if _, err := os.Stat(script); err == nil && q != nil {
		q.Add(fmt.Sprintf("%s %s", name, installScript), func(ctx context.Context) error {
			return r.runScript(ctx, script)
		})
	}

	r.config.Logger.WithField("module", name).Debug("module installed")
	return nil
}

// UninstallModule runs the module's uninstall.sql, if any, and removes it
// from the registry.
func (r *Registry) UninstallModule(ctx context.Context, name string) error {
	script := filepath.Join(r.config.ModulesDir, name, uninstallScript)
	if _, err := os.Stat(script); err == nil {
		if err := r.runScript(ctx, script); err != nil {
			return err
		}
	}

	if err := r.delete(ctx, name, KindModule); err != nil {
		return err
	}

	r.config.Logger.WithField("module", name).Debug("module uninstalled")
	return nil
}

// InstallTheme records the theme as installed.
func (r *Registry) InstallTheme(ctx context.Context, name string, _ *batch.Queue) error {
	dir := filepath.Join(r.config.ThemesDir, name)
	if r.config.ThemesDir == "" || !isDir(dir) {
		return fmt.Errorf("%w: %s", ErrThemeNotFound, name)
	}

	if err := r.insert(ctx, name, KindTheme); err != nil {
		return err
	}

	r.config.Logger.WithField("theme", name).Debug("theme installed")
	return nil
}

// Extensions lists installed extensions ordered by kind and name.
func (r *Registry) Extensions(ctx context.Context) ([]Extension, error) {
	rows, err := r.config.Conn.DB.QueryContext(ctx,
		fmt.Sprintf("SELECT name, kind, installed_at FROM %s ORDER BY kind, name", Table))
	if err != nil {
		return nil, fmt.Errorf("failed to list extensions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Extension
	for rows.Next() {
		var (
			ext         Extension
			kind        string
			installedAt string
		)
		if err := rows.Scan(&ext.Name, &kind, &installedAt); err != nil {
			return nil, fmt.Errorf("failed to scan extension: %w", err)
		}
		ext.Kind = Kind(kind)
		ext.InstalledAt, _ = time.Parse(time.RFC3339, installedAt)
		out = append(out, ext)
	}
	return out, rows.Err()
}

func (r *Registry) exists(ctx context.Context, name string, kind Kind) (bool, error) {
	q := r.config.Conn.Dialect.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE name = ? AND kind = ?", Table))

	var n int
	if err := r.config.Conn.DB.QueryRowContext(ctx, q, name, string(kind)).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up %s %s: %w", kind, name, err)
	}
	return n > 0, nil
}

func (r *Registry) insert(ctx context.Context, name string, kind Kind) error {
	q := r.config.Conn.Dialect.Rebind(fmt.Sprintf("INSERT INTO %s (name, kind, installed_at) VALUES (?, ?, ?)", Table))

	if _, err := r.config.Conn.DB.ExecContext(ctx, q, name, string(kind), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to register %s %s: %w", kind, name, err)
	}
	return nil
}

func (r *Registry) delete(ctx context.Context, name string, kind Kind) error {
	q := r.config.Conn.Dialect.Rebind(fmt.Sprintf("DELETE FROM %s WHERE name = ? AND kind = ?", Table))

	if _, err := r.config.Conn.DB.ExecContext(ctx, q, name, string(kind)); err != nil {
		return fmt.Errorf("failed to unregister %s %s: %w", kind, name, err)
	}
	return nil
}

func (r *Registry) runScript(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	stmts, err := database.SplitStatements(r.config.Conn.Dialect, string(data))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	tx, err := r.config.Conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return commit(tx)
}

func commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
