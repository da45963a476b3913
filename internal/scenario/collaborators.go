package scenario

import (
	"context"

	"github.com/scenarioctl/scenarioctl/internal/batch"
)

// Installer installs and removes modules and themes. Install calls may queue
// deferred work on q; the orchestrator drains it before running migrations.
type Installer interface {
	ModuleExists(ctx context.Context, name string) (bool, error)
	InstallModule(ctx context.Context, name string, q *batch.Queue) error
	UninstallModule(ctx context.Context, name string) error
	ThemeExists(ctx context.Context, name string) (bool, error)
	InstallTheme(ctx context.Context, name string, q *batch.Queue) error
}

// DescriptorProvider loads scenario descriptors. A missing descriptor is
// reported with an error wrapping ErrDescriptorNotFound.
type DescriptorProvider interface {
	Descriptor(ctx context.Context, name string) (Descriptor, error)
}

// Migration is an instantiated migration ready to run.
type Migration interface {
	ID() string
	Label() string
}

// MigrationRunner instantiates and runs migrations.
type MigrationRunner interface {
	Instantiate(ctx context.Context, id string) (Migration, error)
	RunForward(ctx context.Context, m Migration) error
	RunBackward(ctx context.Context, m Migration) error
	// ClearDefinitionCache makes newly installed definitions visible.
	ClearDefinitionCache()
}

// Notifier routes progress and error messages to the operator.
type Notifier interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// CacheInvalidator rebuilds derived caches once a scenario is enabled.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// MigrationListener is called after every forward migration, whatever its
// outcome.
type MigrationListener interface {
	MigrationFinished(ctx context.Context, rec MigrationRecord)
}

// MigrationListenerFunc adapts a function to MigrationListener.
type MigrationListenerFunc func(ctx context.Context, rec MigrationRecord)

func (f MigrationListenerFunc) MigrationFinished(ctx context.Context, rec MigrationRecord) {
	f(ctx, rec)
}

type nopNotifier struct{}

func (nopNotifier) Info(string)    {}
func (nopNotifier) Warning(string) {}
func (nopNotifier) Error(string)   {}
