package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scenarioctl/scenarioctl/internal/audit"
	"github.com/scenarioctl/scenarioctl/internal/batch"
	"github.com/scenarioctl/scenarioctl/internal/cache"
	"github.com/scenarioctl/scenarioctl/internal/config"
	"github.com/scenarioctl/scenarioctl/internal/database"
	"github.com/scenarioctl/scenarioctl/internal/descriptor"
	"github.com/scenarioctl/scenarioctl/internal/migrate"
	"github.com/scenarioctl/scenarioctl/internal/notify"
	"github.com/scenarioctl/scenarioctl/internal/registry"
	"github.com/scenarioctl/scenarioctl/internal/scenario"
	"github.com/scenarioctl/scenarioctl/internal/tui"
)

type appOptions struct {
	// execution selects where notifications go.
	execution notify.ExecutionContext

	// quiet sends console info messages to stderr, keeping stdout for JSON.
	quiet bool

	// local ignores --alias.
	local bool
}

// app wires the orchestrator and its collaborators for one command run.
type app struct {
	cfg          *config.Config
	env          *config.ResolvedEnvironment
	logger       *logrus.Logger
	conn         *database.Conn
	registry     *registry.Registry
	descriptors  *descriptor.Provider
	migrations   *migrate.Runner
	audit        *audit.Listener
	orchestrator *scenario.Orchestrator

	// recorder keeps the notifications of embedded runs for the browser.
	recorder *notify.Recorder

	closers []io.Closer
}

var (
	_ tui.Backend = (*app)(nil)
	_ tui.Journal = (*app)(nil)
)

func newApp(cmd *cobra.Command, opts appOptions) (_ *app, err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a := &app{logger: logrus.New()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.logger.SetOutput(cmd.ErrOrStderr())
	a.logger.SetLevel(logrus.WarnLevel)
	if verboseFlag {
		a.logger.SetLevel(logrus.DebugLevel)
	}

	a.cfg, err = config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if a.cfg.ConfigFilePath == "" && verboseFlag {
		printConfigNotFound(cmd.ErrOrStderr())
	}

	a.env, err = config.ResolveEnvironment(a.cfg, environmentFlag)
	if err != nil {
		return nil, err
	}
	a.logger.WithFields(logrus.Fields{
		"environment": a.env.Name,
		"driver":      a.env.Driver(),
	}).Debug("resolved environment")

	notifier, err := a.notifier(cmd, opts)
	if err != nil {
		return nil, err
	}

	a.conn, err = database.Open(ctx, a.env.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("environment %s: %w", a.env.Name, err)
	}
	a.closers = append(a.closers, a.conn)

	a.registry = registry.New(registry.Config{
		Conn:       a.conn,
		ModulesDir: a.cfg.ScenariosDir,
		ThemesDir:  a.cfg.ThemesDir,
		Logger:     a.logger,
	})
	if err := a.registry.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	a.migrations = migrate.New(migrate.Config{
		Conn:         a.conn,
		ScenariosDir: a.cfg.ScenariosDir,
		Logger:       a.logger,
	})
	if err := a.migrations.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	a.descriptors = descriptor.NewProvider(a.cfg.ScenariosDir, a.cfg.ThemesDir)

	a.audit, err = audit.Open(a.cfg.StateDir)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.audit)

	alias := aliasFlag
	if opts.local {
		alias = cache.SelfAlias
	}
	invalidator, err := cache.New(alias, a.cfg.AliasCommands(), a.descriptors, a.migrations)
	if err != nil {
		return nil, err
	}

	a.orchestrator, err = scenario.New(scenario.Config{
		Installer:     a.registry,
		Descriptors:   a.descriptors,
		Migrations:    a.migrations,
		Notifier:      notifier,
		Cache:         invalidator,
		Batches:       batch.NewInlineProcessor(a.logger),
		Listeners:     []scenario.MigrationListener{a.audit},
		ResetStrategy: a.cfg.Strategy(),
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

// notifier returns the console for CLI runs. Embedded runs (the browse
// screen) log to <state_dir>/logs/scenarioctl.log instead of the terminal
// and keep each run's messages for the screen to show.
func (a *app) notifier(cmd *cobra.Command, opts appOptions) (scenario.Notifier, error) {
	switch opts.execution {
	case notify.ContextSilent:
		return notify.New(notify.ContextSilent, nil), nil
	case notify.ContextEmbedded:
		logDir := filepath.Join(a.cfg.StateDir, "logs")
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", logDir, err)
		}
		f, err := os.OpenFile(filepath.Join(logDir, "scenarioctl.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.closers = append(a.closers, f)
		a.logger.SetOutput(f)
		a.recorder = &notify.Recorder{}
		return notify.Multi{notify.New(notify.ContextEmbedded, a.logger), a.recorder}, nil
	}

	out := cmd.OutOrStdout()
	if opts.quiet {
		out = cmd.ErrOrStderr()
	}
	return notify.NewConsole(out, cmd.ErrOrStderr()), nil
}

// Close releases the database connection and log files.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run dispatches a lifecycle operation by name.
func (a *app) Run(ctx context.Context, op scenario.Operation, name string) (*scenario.Report, error) {
	switch op {
	case scenario.OpEnable:
		return a.orchestrator.Enable(ctx, name)
	case scenario.OpDisable:
		return a.orchestrator.Disable(ctx, name)
	case scenario.OpReset:
		return a.orchestrator.Reset(ctx, name)
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", scenario.ErrInvalidArgument, op)
	}
}

// Drain returns the notifications recorded since the last call. Only
// embedded runs record anything.
func (a *app) Drain() []notify.Message {
	if a.recorder == nil {
		return nil
	}
	return a.recorder.Drain()
}

// List returns every scenario with its derived install state.
func (a *app) List(ctx context.Context) ([]tui.Entry, error) {
	descriptors, listErr := a.descriptors.List(ctx)

	entries := make([]tui.Entry, 0, len(descriptors))
	for _, d := range descriptors {
		state, err := a.orchestrator.State(ctx, d.Name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, tui.Entry{Descriptor: d, State: state})
	}
	return entries, listErr
}
