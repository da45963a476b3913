package scenario

import (
	"encoding/json"
	"time"
)

// State is the derived install state of a scenario.
type State int

const (
	StateNotInstalled State = iota
	StateInstalled
)

func (s State) String() string {
	if s == StateInstalled {
		return "installed"
	}
	return "not installed"
}

// Direction is the way a migration runs.
type Direction string

const (
	// Forward imports data.
	Forward Direction = "forward"
	// Backward rolls imported data back.
	Backward Direction = "backward"
)

// Outcome is the result of a single migration run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Operation names a lifecycle operation.
type Operation string

const (
	OpEnable  Operation = "enable"
	OpDisable Operation = "disable"
	OpReset   Operation = "reset"
)

// Descriptor is the read-only metadata of a scenario.
type Descriptor struct {
	// Name is the machine name of the scenario and its primary module.
	Name string `json:"name"`

	// Label is the human-readable name.
	Label string `json:"label,omitempty"`

	Description string `json:"description,omitempty"`

	// Theme is installed before the module when set.
	Theme string `json:"theme,omitempty"`

	// Migrations run in this order on enable and in reverse on disable.
	Migrations []string `json:"migrations"`

	// Screenshot is the theme screenshot path, if the theme provides one.
	Screenshot string `json:"screenshot,omitempty"`
}

// MigrationRecord is the ephemeral result of running one migration.
type MigrationRecord struct {
	RunID     string        `json:"run_id"`
	Scenario  string        `json:"scenario"`
	ID        string        `json:"id"`
	Label     string        `json:"label,omitempty"`
	Direction Direction     `json:"direction"`
	Outcome   Outcome       `json:"outcome"`
	Err       error         `json:"-"`
	Duration  time.Duration `json:"duration"`
}

// ErrorMessage returns the failure message, or "" on success.
func (r MigrationRecord) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// MarshalJSON adds the failure message as "error".
func (r MigrationRecord) MarshalJSON() ([]byte, error) {
	type plain MigrationRecord
	return json.Marshal(struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain(r), r.ErrorMessage()})
}
