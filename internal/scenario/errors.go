package scenario

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument indicates a missing or blank scenario machine name.
	ErrInvalidArgument = errors.New("you must specify a scenario machine name")

	// ErrAlreadyEnabled indicates Enable was called for an installed scenario.
	ErrAlreadyEnabled = errors.New("scenario already enabled")

	// ErrNotEnabled indicates Disable was called for a scenario that is not installed.
	ErrNotEnabled = errors.New("scenario not enabled")

	// ErrDescriptorNotFound indicates the scenario has no descriptor.
	ErrDescriptorNotFound = errors.New("scenario descriptor not found")

	// ErrInstallFailure indicates a module or theme could not be installed.
	ErrInstallFailure = errors.New("install failed")

	// ErrUninstallFailure indicates the scenario module could not be uninstalled.
	ErrUninstallFailure = errors.New("uninstall failed")

	// ErrMigrationFailure indicates a single migration could not be instantiated or run.
	ErrMigrationFailure = errors.New("migration failed")

	// ErrBatchFailure indicates deferred install work failed while draining.
	ErrBatchFailure = errors.New("batch processing failed")

	// ErrCacheFailure indicates cache invalidation failed.
	ErrCacheFailure = errors.New("cache invalidation failed")
)

// StepError records a failed step of a lifecycle run. Kind is one of the
// Err* sentinels above; Err is the collaborator's error.
type StepError struct {
	Step   string
	Target string
	Kind   error
	Err    error
}

func (e *StepError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Step, e.Target, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying error to errors.Is.
func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
