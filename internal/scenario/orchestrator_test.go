package scenario

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnableRunsMigrationsInDeclaredOrder(t *testing.T) {
	h := newHarness()
	o := h.orchestrator("")

	report, err := o.Enable(context.Background(), "alpha")
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m2", "m3"}, h.runner.forward)
	assert.Empty(t, h.runner.backward)
	assert.True(t, h.installer.modules["alpha"])
	assert.True(t, h.installer.themes["alpha_theme"])

	assert.Equal(t, OpEnable, report.Operation)
	assert.True(t, report.ThemeInstalled)
	assert.True(t, report.ModuleInstalled)
	assert.False(t, report.Failed())
	require.Len(t, report.Migrations, 3)
	for _, rec := range report.Migrations {
		assert.Equal(t, Forward, rec.Direction)
		assert.Equal(t, OutcomeSuccess, rec.Outcome)
		assert.Equal(t, report.RunID, rec.RunID)
	}

	assert.Contains(t, h.notifier.infos, "Installed alpha scenario theme alpha_theme.")
	assert.Contains(t, h.notifier.infos, "Installed alpha scenario module.")
	assert.Contains(t, h.notifier.infos, `Imported "Label m2" migration.`)

	calls := h.log.all()
	assert.Equal(t, "exists alpha", calls[0])
	assert.Equal(t, "invalidate cache", calls[len(calls)-1])
}

func TestEnableAlreadyEnabledHasNoSideEffects(t *testing.T) {
	h := newHarness()
	h.installer.modules["alpha"] = true
	o := h.orchestrator("")

	_, err := o.Enable(context.Background(), "alpha")

	require.ErrorIs(t, err, ErrAlreadyEnabled)
	assert.Equal(t, []string{"exists alpha", "notify error"}, h.log.all())
	assert.Equal(t, []string{"The scenario alpha is already enabled."}, h.notifier.errors)
}

func TestEnableDescriptorNotFound(t *testing.T) {
	h := newHarness()
	o := h.orchestrator("")

	_, err := o.Enable(context.Background(), "ghost")

	require.ErrorIs(t, err, ErrDescriptorNotFound)
	assert.Equal(t, []string{"exists ghost", "descriptor ghost", "notify error"}, h.log.all())
}

func TestEnableInvalidDescriptor(t *testing.T) {
	h := newHarness()
	invalid := errors.New("scenarios_migrations: Invalid type")
	h.descriptors.err = invalid
	o := h.orchestrator("")

	_, err := o.Enable(context.Background(), "alpha")

	require.ErrorIs(t, err, ErrDescriptorNotFound)
	assert.ErrorIs(t, err, invalid)
	assert.False(t, h.installer.modules["alpha"])
	assert.Empty(t, h.runner.forward)
}

func TestEnableModuleInstallFailureRunsNoMigrations(t *testing.T) {
	h := newHarness()
	h.installer.installErr = errors.New("dependency missing")
	o := h.orchestrator("")

	report, err := o.Enable(context.Background(), "alpha")

	require.ErrorIs(t, err, ErrInstallFailure)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "install module", stepErr.Step)
	assert.Empty(t, h.runner.forward)
	assert.NotContains(t, h.log.all(), "clear definitions")
	assert.NotContains(t, h.log.all(), "invalidate cache")
	assert.False(t, report.ModuleInstalled)
}

func TestEnableThemeFailureDoesNotAbort(t *testing.T) {
	h := newHarness()
	h.installer.themeErr = errors.New("theme directory missing")
	o := h.orchestrator("")

	report, err := o.Enable(context.Background(), "alpha")

	require.NoError(t, err)
	assert.True(t, h.installer.modules["alpha"])
	assert.Equal(t, []string{"m1", "m2", "m3"}, h.runner.forward)
	assert.False(t, report.ThemeInstalled)
	assert.True(t, report.Failed())
	assert.ErrorIs(t, report.Err(), ErrInstallFailure)
}

func TestEnableSkipsInstalledTheme(t *testing.T) {
	h := newHarness()
	h.installer.themes["alpha_theme"] = true
	o := h.orchestrator("")

	report, err := o.Enable(context.Background(), "alpha")

	require.NoError(t, err)
	assert.NotContains(t, h.log.all(), "install theme alpha_theme")
	assert.False(t, report.ThemeInstalled)
}

func TestEnableContinuesAfterMigrationFailure(t *testing.T) {
	h := newHarness()
	h.runner.failForward["m2"] = true
	o := h.orchestrator("")

	report, err := o.Enable(context.Background(), "alpha")

	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, h.runner.forward)
	assert.True(t, report.Failed())
	assert.ErrorIs(t, report.Err(), ErrMigrationFailure)
	require.Len(t, report.Migrations, 3)
	assert.Equal(t, OutcomeFailure, report.Migrations[1].Outcome)
	assert.Equal(t, OutcomeSuccess, report.Migrations[2].Outcome)

	// listeners see every migration, failed ones included
	require.Len(t, h.records, 3)
	assert.Equal(t, OutcomeFailure, h.records[1].Outcome)
	assert.Equal(t, "import failed", h.records[1].ErrorMessage())
	assert.Contains(t, h.log.all(), "invalidate cache")
}

func TestEnableInstantiateFailureContinues(t *testing.T) {
	h := newHarness()
	h.runner.unknown["m1"] = true
	o := h.orchestrator("")

	report, err := o.Enable(context.Background(), "alpha")

	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3"}, h.runner.forward)
	require.Len(t, h.records, 3)
	assert.Equal(t, "m1", h.records[0].ID)
	assert.Equal(t, OutcomeFailure, h.records[0].Outcome)
	assert.True(t, report.Failed())
}

func TestEnableDrainsBatchBeforeMigrations(t *testing.T) {
	h := newHarness()
	h.installer.queueOnModule = true
	o := h.orchestrator("")

	_, err := o.Enable(context.Background(), "alpha")
	require.NoError(t, err)

	calls := h.log.all()
	batchAt := slices.Index(calls, "batch alpha")
	clearAt := slices.Index(calls, "clear definitions")
	require.NotEqual(t, -1, batchAt)
	require.NotEqual(t, -1, clearAt)
	assert.Less(t, slices.Index(calls, "install module alpha"), batchAt)
	assert.Less(t, batchAt, clearAt)
}

func TestEnableCacheFailureIsRecorded(t *testing.T) {
	h := newHarness()
	h.cache.err = errors.New("remote unreachable")
	o := h.orchestrator("")

	report, err := o.Enable(context.Background(), "alpha")

	require.NoError(t, err)
	assert.ErrorIs(t, report.Err(), ErrCacheFailure)
}

func TestDisableRunsMigrationsInReverseOrder(t *testing.T) {
	h := newHarness()
	h.installer.modules["alpha"] = true
	o := h.orchestrator("")

	report, err := o.Disable(context.Background(), "alpha")

	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m2", "m1"}, h.runner.backward)
	assert.Empty(t, h.runner.forward)
	assert.False(t, h.installer.modules["alpha"])
	assert.True(t, report.ModuleUninstalled)
	assert.Contains(t, h.notifier.infos, "Uninstalled alpha scenario module.")
	assert.Contains(t, h.notifier.infos, `Rolled back "Label m3" migration.`)
	assert.NotContains(t, h.log.all(), "invalidate cache")
	// rollback listeners are not invoked
	assert.Empty(t, h.records)
}

func TestDisableNotEnabled(t *testing.T) {
	h := newHarness()
	o := h.orchestrator("")

	_, err := o.Disable(context.Background(), "alpha")

	require.ErrorIs(t, err, ErrNotEnabled)
	assert.Equal(t, []string{"exists alpha", "notify error"}, h.log.all())
	assert.Equal(t, []string{"The scenario alpha is not enabled."}, h.notifier.errors)
}

func TestDisableUninstallFailureIsRecorded(t *testing.T) {
	h := newHarness()
	h.installer.modules["alpha"] = true
	h.installer.uninstallErr = errors.New("still required")
	o := h.orchestrator("")

	report, err := o.Disable(context.Background(), "alpha")

	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m2", "m1"}, h.runner.backward)
	assert.False(t, report.ModuleUninstalled)
	assert.ErrorIs(t, report.Err(), ErrUninstallFailure)
}

func TestBlankNameAbortsBeforeAnyCollaborator(t *testing.T) {
	ops := map[string]func(*Orchestrator, string) (*Report, error){
		"enable":  func(o *Orchestrator, n string) (*Report, error) { return o.Enable(context.Background(), n) },
		"disable": func(o *Orchestrator, n string) (*Report, error) { return o.Disable(context.Background(), n) },
		"reset":   func(o *Orchestrator, n string) (*Report, error) { return o.Reset(context.Background(), n) },
	}

	for opName, op := range ops {
		for _, name := range []string{"", "   ", "\t\n"} {
			t.Run(opName, func(t *testing.T) {
				h := newHarness()
				report, err := op(h.orchestrator(""), name)

				require.ErrorIs(t, err, ErrInvalidArgument)
				assert.Nil(t, report)
				assert.Empty(t, h.log.all())
			})
		}
	}
}

func TestResetDisableTwiceNeverLeavesScenarioInstalled(t *testing.T) {
	for _, startInstalled := range []bool{true, false} {
		h := newHarness()
		h.installer.modules["alpha"] = startInstalled
		o := h.orchestrator(ResetDisableTwice)

		report, err := o.Reset(context.Background(), "alpha")

		require.NoError(t, err)
		assert.False(t, h.installer.modules["alpha"], "started installed=%v", startInstalled)
		assert.Empty(t, h.runner.forward)
		assert.Equal(t, []string{"Initiated reset of alpha scenario module."}, h.notifier.warnings)
		assert.Len(t, report.Passes, 2)
		assert.Equal(t, OpReset, report.Operation)
	}
}

func TestResetReinstall(t *testing.T) {
	h := newHarness()
	h.installer.modules["alpha"] = true
	o := h.orchestrator(ResetReinstall)

	report, err := o.Reset(context.Background(), "alpha")

	require.NoError(t, err)
	assert.True(t, h.installer.modules["alpha"])
	assert.Equal(t, []string{"m3", "m2", "m1"}, h.runner.backward)
	assert.Equal(t, []string{"m1", "m2", "m3"}, h.runner.forward)
	require.Len(t, report.Passes, 2)
	assert.Equal(t, OpDisable, report.Passes[0].Operation)
	assert.Equal(t, OpEnable, report.Passes[1].Operation)
}

func TestResetReinstallFromUninstalled(t *testing.T) {
	h := newHarness()
	o := h.orchestrator(ResetReinstall)

	_, err := o.Reset(context.Background(), "alpha")

	require.NoError(t, err)
	assert.True(t, h.installer.modules["alpha"])
}

func TestResetStopsOnDescriptorError(t *testing.T) {
	h := newHarness()
	h.installer.modules["ghost"] = true
	o := h.orchestrator(ResetReinstall)

	_, err := o.Reset(context.Background(), "ghost")

	require.ErrorIs(t, err, ErrDescriptorNotFound)
	assert.True(t, h.installer.modules["ghost"])
}

func TestConcurrentEnableSerialisesPerScenario(t *testing.T) {
	h := newHarness()
	o := h.orchestrator("")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = o.Enable(context.Background(), "alpha")
		}(i)
	}
	wg.Wait()

	var ok, already int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyEnabled):
			already++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, already)
	assert.Equal(t, []string{"m1", "m2", "m3"}, h.runner.forward)
}

func TestState(t *testing.T) {
	h := newHarness()
	o := h.orchestrator("")

	state, err := o.State(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, StateNotInstalled, state)

	h.installer.modules["alpha"] = true
	state, err = o.State(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, StateInstalled, state)
	assert.Equal(t, "installed", state.String())

	_, err = o.State(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParseResetStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    ResetStrategy
		wantErr bool
	}{
		{"", ResetDisableTwice, false},
		{"disable-twice", ResetDisableTwice, false},
		{"reinstall", ResetReinstall, false},
		{" reinstall ", ResetReinstall, false},
		{"enable", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResetStrategy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	h := newHarness()

	_, err := New(Config{Descriptors: h.descriptors, Migrations: h.runner})
	assert.Error(t, err)
	_, err = New(Config{Installer: h.installer, Migrations: h.runner})
	assert.Error(t, err)
	_, err = New(Config{Installer: h.installer, Descriptors: h.descriptors})
	assert.Error(t, err)

	o, err := New(Config{Installer: h.installer, Descriptors: h.descriptors, Migrations: h.runner})
	require.NoError(t, err)
	_, err = o.Enable(context.Background(), "alpha")
	assert.NoError(t, err)
}
