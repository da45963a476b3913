package scenario

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/scenarioctl/scenarioctl/internal/batch"
)

// ResetStrategy selects the second pass of Reset.
type ResetStrategy string

const (
	// ResetDisableTwice disables the scenario and then disables it again.
	// This matches the behaviour of the handler scenarios were first managed
	// with; the scenario is never installed afterwards.
	ResetDisableTwice ResetStrategy = "disable-twice"

	// ResetReinstall disables the scenario and then enables it.
	ResetReinstall ResetStrategy = "reinstall"
)

// ParseResetStrategy parses a configured strategy name. An empty name yields
// ResetDisableTwice.
func ParseResetStrategy(s string) (ResetStrategy, error) {
	switch ResetStrategy(strings.TrimSpace(s)) {
	case "", ResetDisableTwice:
		return ResetDisableTwice, nil
	case ResetReinstall:
		return ResetReinstall, nil
	default:
		return "", fmt.Errorf("unknown reset strategy %q (want %q or %q)", s, ResetDisableTwice, ResetReinstall)
	}
}

// Config holds the collaborators of an Orchestrator.
type Config struct {
	// Installer is required.
	Installer Installer

	// Descriptors is required.
	Descriptors DescriptorProvider

	// Migrations is required.
	Migrations MigrationRunner

	// Notifier receives progress and errors (default: discard).
	Notifier Notifier

	// Cache is invalidated after a successful enable (optional).
	Cache CacheInvalidator

	// Batches drains deferred install work (default: inline processor).
	Batches batch.Processor

	// Listeners are called after every forward migration.
	Listeners []MigrationListener

	// ResetStrategy selects Reset's second pass (default: ResetDisableTwice).
	ResetStrategy ResetStrategy
}

// Orchestrator drives scenarios through enable, disable and reset. It holds
// no scenario state; install state is re-derived from the Installer on every
// call.
type Orchestrator struct {
	config Config
	locks  keyedMutex
}

// New creates an Orchestrator, applying defaults for optional collaborators.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Installer == nil {
		return nil, errors.New("scenario: installer is required")
	}
	if cfg.Descriptors == nil {
		return nil, errors.New("scenario: descriptor provider is required")
	}
	if cfg.Migrations == nil {
		return nil, errors.New("scenario: migration runner is required")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Batches == nil {
		cfg.Batches = batch.NewInlineProcessor(nil)
	}
	if cfg.ResetStrategy == "" {
		cfg.ResetStrategy = ResetDisableTwice
	}

	return &Orchestrator{config: cfg}, nil
}

// State derives the install state of a scenario.
func (o *Orchestrator) State(ctx context.Context, name string) (State, error) {
	name, err := MachineName(name)
	if err != nil {
		return StateNotInstalled, err
	}
	installed, err := o.config.Installer.ModuleExists(ctx, name)
	if err != nil {
		return StateNotInstalled, fmt.Errorf("resolve state of %s: %w", name, err)
	}
	if installed {
		return StateInstalled, nil
	}
	return StateNotInstalled, nil
}

// Enable installs the scenario's theme and module and runs its migrations
// forward in declared order. Per-step failures are notified and recorded in
// the report; only structural errors and a failed module install are
// returned.
func (o *Orchestrator) Enable(ctx context.Context, name string) (*Report, error) {
	name, err := MachineName(name)
	if err != nil {
		return nil, err
	}
	unlock := o.locks.lock(name)
	defer unlock()

	return o.enable(ctx, name)
}

// Disable rolls the scenario's migrations back in reverse order and
// uninstalls its module.
func (o *Orchestrator) Disable(ctx context.Context, name string) (*Report, error) {
	name, err := MachineName(name)
	if err != nil {
		return nil, err
	}
	unlock := o.locks.lock(name)
	defer unlock()

	return o.disable(ctx, name)
}

// Reset runs two passes over the scenario as selected by the configured
// ResetStrategy. ErrNotEnabled from either pass is tolerated.
func (o *Orchestrator) Reset(ctx context.Context, name string) (*Report, error) {
	name, err := MachineName(name)
	if err != nil {
		return nil, err
	}
	unlock := o.locks.lock(name)
	defer unlock()

	report := newReport(OpReset, name)
	o.config.Notifier.Warning(fmt.Sprintf("Initiated reset of %s scenario module.", name))

	first, err := o.disable(ctx, name)
	report.addPass(first)
	if err != nil && !errors.Is(err, ErrNotEnabled) {
		return report.finish(), err
	}

	var second *Report
	switch o.config.ResetStrategy {
	case ResetReinstall:
		second, err = o.enable(ctx, name)
	default:
		second, err = o.disable(ctx, name)
	}
	report.addPass(second)
	if err != nil && !errors.Is(err, ErrNotEnabled) {
		return report.finish(), err
	}

	return report.finish(), nil
}

func (o *Orchestrator) enable(ctx context.Context, name string) (*Report, error) {
	n := o.config.Notifier
	report := newReport(OpEnable, name)

	installed, err := o.config.Installer.ModuleExists(ctx, name)
	if err != nil {
		n.Error(fmt.Sprintf("Could not determine the state of scenario %s: %v", name, err))
		return report.finish(), fmt.Errorf("resolve state of %s: %w", name, err)
	}
	if installed {
		n.Error(fmt.Sprintf("The scenario %s is already enabled.", name))
		return report.finish(), fmt.Errorf("%w: %s", ErrAlreadyEnabled, name)
	}

	desc, err := o.descriptor(ctx, name)
	if err != nil {
		return report.finish(), err
	}

	queue := batch.NewQueue()

	if desc.Theme != "" {
		o.installTheme(ctx, report, desc, queue)
	}

	if err := o.config.Installer.InstallModule(ctx, name, queue); err != nil {
		n.Error(fmt.Sprintf("Failed to install %s scenario module: %v", name, err))
		return report.finish(), report.fail("install module", name, ErrInstallFailure, err)
	}
	report.ModuleInstalled = true
	n.Info(fmt.Sprintf("Installed %s scenario module.", name))

	if queue.Len() > 0 {
		if err := o.config.Batches.Process(ctx, queue); err != nil {
			report.fail("process batch", name, ErrBatchFailure, err)
			n.Error(fmt.Sprintf("Deferred install work for %s failed: %v", name, err))
		}
	}

	o.config.Migrations.ClearDefinitionCache()
	for _, id := range desc.Migrations {
		rec := o.runMigration(ctx, report, id, Forward)
		for _, l := range o.config.Listeners {
			l.MigrationFinished(ctx, rec)
		}
	}

	if o.config.Cache != nil {
		if err := o.config.Cache.Invalidate(ctx); err != nil {
			report.fail("rebuild cache", "", ErrCacheFailure, err)
			n.Error(fmt.Sprintf("Cache rebuild after enabling %s failed: %v", name, err))
		}
	}

	return report.finish(), nil
}

func (o *Orchestrator) disable(ctx context.Context, name string) (*Report, error) {
	n := o.config.Notifier
	report := newReport(OpDisable, name)

	installed, err := o.config.Installer.ModuleExists(ctx, name)
	if err != nil {
		n.Error(fmt.Sprintf("Could not determine the state of scenario %s: %v", name, err))
		return report.finish(), fmt.Errorf("resolve state of %s: %w", name, err)
	}
	if !installed {
		n.Error(fmt.Sprintf("The scenario %s is not enabled.", name))
		return report.finish(), fmt.Errorf("%w: %s", ErrNotEnabled, name)
	}

	desc, err := o.descriptor(ctx, name)
	if err != nil {
		return report.finish(), err
	}

	migrations := slices.Clone(desc.Migrations)
	slices.Reverse(migrations)

	o.config.Migrations.ClearDefinitionCache()
	for _, id := range migrations {
		o.runMigration(ctx, report, id, Backward)
	}

	if err := o.config.Installer.UninstallModule(ctx, name); err != nil {
		report.fail("uninstall module", name, ErrUninstallFailure, err)
		n.Error(fmt.Sprintf("Failed to uninstall %s scenario module: %v", name, err))
	} else {
		report.ModuleUninstalled = true
		n.Info(fmt.Sprintf("Uninstalled %s scenario module.", name))
	}

	return report.finish(), nil
}

func (o *Orchestrator) descriptor(ctx context.Context, name string) (Descriptor, error) {
	desc, err := o.config.Descriptors.Descriptor(ctx, name)
	if err != nil {
		o.config.Notifier.Error(fmt.Sprintf("Could not load the descriptor of scenario %s: %v", name, err))
		if errors.Is(err, ErrDescriptorNotFound) {
			return Descriptor{}, err
		}
		return Descriptor{}, fmt.Errorf("%w: %s: %w", ErrDescriptorNotFound, name, err)
	}
	return desc, nil
}

// installTheme installs the descriptor's theme if needed. Failures do not
// abort the enable.
func (o *Orchestrator) installTheme(ctx context.Context, report *Report, desc Descriptor, q *batch.Queue) {
	n := o.config.Notifier

	exists, err := o.config.Installer.ThemeExists(ctx, desc.Theme)
	if err == nil && exists {
		return
	}
	if err == nil {
		err = o.config.Installer.InstallTheme(ctx, desc.Theme, q)
	}
	if err != nil {
		report.fail("install theme", desc.Theme, ErrInstallFailure, err)
		n.Error(fmt.Sprintf("Failed to install %s scenario theme %s: %v", desc.Name, desc.Theme, err))
		return
	}

	report.ThemeInstalled = true
	n.Info(fmt.Sprintf("Installed %s scenario theme %s.", desc.Name, desc.Theme))
}

func (o *Orchestrator) runMigration(ctx context.Context, report *Report, id string, dir Direction) MigrationRecord {
	runner := o.config.Migrations
	n := o.config.Notifier
	start := time.Now()

	rec := MigrationRecord{
		RunID:     report.RunID,
		Scenario:  report.Scenario,
		ID:        id,
		Direction: dir,
	}

	m, err := runner.Instantiate(ctx, id)
	if err == nil {
		rec.Label = m.Label()
		if dir == Forward {
			err = runner.RunForward(ctx, m)
		} else {
			err = runner.RunBackward(ctx, m)
		}
	}
	rec.Duration = time.Since(start)

	label := rec.Label
	if label == "" {
		label = id
	}

	if err != nil {
		rec.Outcome = OutcomeFailure
		rec.Err = err
		report.fail(string(dir)+" migration", id, ErrMigrationFailure, err)
		n.Error(fmt.Sprintf("Migration %q failed (%s): %v", label, dir, err))
	} else {
		rec.Outcome = OutcomeSuccess
		if dir == Forward {
			n.Info(fmt.Sprintf("Imported %q migration.", label))
		} else {
			n.Info(fmt.Sprintf("Rolled back %q migration.", label))
		}
	}

	report.Migrations = append(report.Migrations, rec)
	return rec
}

func (r *Report) addPass(p *Report) {
	if p != nil {
		r.Passes = append(r.Passes, p)
	}
}

// MachineName trims a scenario name and rejects a blank one with
// ErrInvalidArgument.
func MachineName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidArgument
	}
	return name, nil
}
