package scenario

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Report describes what a lifecycle run attempted. A completed run means
// every step was attempted, not that every step succeeded; check Failed.
type Report struct {
	RunID      string    `json:"run_id"`
	Operation  Operation `json:"operation"`
	Scenario   string    `json:"scenario"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	ThemeInstalled    bool `json:"theme_installed,omitempty"`
	ModuleInstalled   bool `json:"module_installed,omitempty"`
	ModuleUninstalled bool `json:"module_uninstalled,omitempty"`

	Migrations []MigrationRecord `json:"migrations,omitempty"`
	Failures   []*StepError      `json:"-"`

	// Passes holds the disable/enable passes of a reset.
	Passes []*Report `json:"passes,omitempty"`
}

func newReport(op Operation, name string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Operation: op,
		Scenario:  name,
		StartedAt: time.Now(),
	}
}

func (r *Report) fail(step, target string, kind, err error) *StepError {
	se := &StepError{Step: step, Target: target, Kind: kind, Err: err}
	r.Failures = append(r.Failures, se)
	return se
}

func (r *Report) finish() *Report {
	r.FinishedAt = time.Now()
	return r
}

// Failed reports whether any step of the run, or of a reset pass, failed.
func (r *Report) Failed() bool {
	return r.Err() != nil
}

// Err joins every per-step failure of the run and its passes.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	for _, p := range r.Passes {
		if err := p.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FailureMessages returns the per-step failures of the run and its passes as
// strings.
func (r *Report) FailureMessages() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, f := range r.Failures {
		out = append(out, f.Error())
	}
	for _, p := range r.Passes {
		out = append(out, p.FailureMessages()...)
	}
	return out
}
