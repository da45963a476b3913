package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/scenarioctl/scenarioctl/internal/batch"
)

// callLog records collaborator calls across fakes, in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

type fakeInstaller struct {
	log           *callLog
	modules       map[string]bool
	themes        map[string]bool
	installErr    error
	uninstallErr  error
	themeErr      error
	queueOnModule bool
}

func newFakeInstaller(log *callLog) *fakeInstaller {
	return &fakeInstaller{log: log, modules: map[string]bool{}, themes: map[string]bool{}}
}

func (f *fakeInstaller) ModuleExists(_ context.Context, name string) (bool, error) {
	f.log.add("exists %s", name)
	return f.modules[name], nil
}

func (f *fakeInstaller) InstallModule(_ context.Context, name string, q *batch.Queue) error {
	f.log.add("install module %s", name)
	if f.installErr != nil {
		return f.installErr
	}
	f.modules[name] = true
	if f.queueOnModule {
		q.Add("module setup "+name, func(context.Context) error {
			f.log.add("batch %s", name)
			return nil
		})
	}
	return nil
}

func (f *fakeInstaller) UninstallModule(_ context.Context, name string) error {
	f.log.add("uninstall module %s", name)
	if f.uninstallErr != nil {
		return f.uninstallErr
	}
	delete(f.modules, name)
	return nil
}

func (f *fakeInstaller) ThemeExists(_ context.Context, name string) (bool, error) {
	f.log.add("theme exists %s", name)
	return f.themes[name], nil
}

func (f *fakeInstaller) InstallTheme(_ context.Context, name string, _ *batch.Queue) error {
	f.log.add("install theme %s", name)
	if f.themeErr != nil {
		return f.themeErr
	}
	f.themes[name] = true
	return nil
}

type fakeDescriptors struct {
	log         *callLog
	descriptors map[string]Descriptor
	err         error
}

func (f *fakeDescriptors) Descriptor(_ context.Context, name string) (Descriptor, error) {
	f.log.add("descriptor %s", name)
	if f.err != nil {
		return Descriptor{}, f.err
	}
	d, ok := f.descriptors[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrDescriptorNotFound, name)
	}
	return d, nil
}

type fakeMigration struct{ id string }

func (m fakeMigration) ID() string    { return m.id }
func (m fakeMigration) Label() string { return "Label " + m.id }

type fakeRunner struct {
	log         *callLog
	failForward map[string]bool
	unknown     map[string]bool
	forward     []string
	backward    []string
}

func newFakeRunner(log *callLog) *fakeRunner {
	return &fakeRunner{log: log, failForward: map[string]bool{}, unknown: map[string]bool{}}
}

func (f *fakeRunner) Instantiate(_ context.Context, id string) (Migration, error) {
	f.log.add("instantiate %s", id)
	if f.unknown[id] {
		return nil, errors.New("no such migration")
	}
	return fakeMigration{id: id}, nil
}

func (f *fakeRunner) RunForward(_ context.Context, m Migration) error {
	f.log.add("forward %s", m.ID())
	f.forward = append(f.forward, m.ID())
	if f.failForward[m.ID()] {
		return errors.New("import failed")
	}
	return nil
}

func (f *fakeRunner) RunBackward(_ context.Context, m Migration) error {
	f.log.add("backward %s", m.ID())
	f.backward = append(f.backward, m.ID())
	return nil
}

func (f *fakeRunner) ClearDefinitionCache() {
	f.log.add("clear definitions")
}

type fakeNotifier struct {
	log      *callLog
	infos    []string
	warnings []string
	errors   []string
}

func (f *fakeNotifier) Info(msg string) {
	f.log.add("notify info")
	f.infos = append(f.infos, msg)
}

func (f *fakeNotifier) Warning(msg string) {
	f.log.add("notify warning")
	f.warnings = append(f.warnings, msg)
}

func (f *fakeNotifier) Error(msg string) {
	f.log.add("notify error")
	f.errors = append(f.errors, msg)
}

type fakeCache struct {
	log *callLog
	err error
}

func (f *fakeCache) Invalidate(context.Context) error {
	f.log.add("invalidate cache")
	return f.err
}

type harness struct {
	log         *callLog
	installer   *fakeInstaller
	descriptors *fakeDescriptors
	runner      *fakeRunner
	notifier    *fakeNotifier
	cache       *fakeCache
	records     []MigrationRecord
}

func newHarness() *harness {
	log := &callLog{}
	return &harness{
		log:       log,
		installer: newFakeInstaller(log),
		descriptors: &fakeDescriptors{log: log, descriptors: map[string]Descriptor{
			"alpha": {Name: "alpha", Theme: "alpha_theme", Migrations: []string{"m1", "m2", "m3"}},
		}},
		runner:   newFakeRunner(log),
		notifier: &fakeNotifier{log: log},
		cache:    &fakeCache{log: log},
	}
}

func (h *harness) orchestrator(strategy ResetStrategy) *Orchestrator {
	o, err := New(Config{
		Installer:   h.installer,
		Descriptors: h.descriptors,
		Migrations:  h.runner,
		Notifier:    h.notifier,
		Cache:       h.cache,
		Listeners: []MigrationListener{MigrationListenerFunc(func(_ context.Context, rec MigrationRecord) {
			h.log.add("listener %s %s", rec.ID, rec.Outcome)
			h.records = append(h.records, rec)
		})},
		ResetStrategy: strategy,
	})
	if err != nil {
		panic(err)
	}
	return o
}
