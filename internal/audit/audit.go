// Package audit appends a JSON line per finished migration to the state
// directory's log.
package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/scenarioctl/scenarioctl/internal/scenario"
)

// FileName is the audit log inside <state_dir>/logs.
const FileName = "migrations.log"

// Listener writes migration records through a logrus JSON formatter.
type Listener struct {
	logger *logrus.Logger
	closer io.Closer
}

var _ scenario.MigrationListener = (*Listener)(nil)

// Open creates (or reuses) <stateDir>/logs/migrations.log.
func Open(stateDir string) (*Listener, error) {
	logDir := filepath.Join(stateDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open log file: %w", err)
	}
	l := NewListener(f)
	l.closer = f
	return l, nil
}

// NewListener writes to w.
func NewListener(w io.Writer) *Listener {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	return &Listener{logger: logger}
}

// MigrationFinished records rec. Failed migrations are logged at error level.
func (l *Listener) MigrationFinished(_ context.Context, rec scenario.MigrationRecord) {
	if l == nil || l.logger == nil {
		return
	}

	entry := l.logger.WithFields(logrus.Fields{
		"run_id":      rec.RunID,
		"scenario":    rec.Scenario,
		"migration":   rec.ID,
		"label":       rec.Label,
		"direction":   string(rec.Direction),
		"outcome":     string(rec.Outcome),
		"duration_ms": rec.Duration.Milliseconds(),
	})
	if rec.Err != nil {
		entry.WithError(rec.Err).Error("migration finished")
		return
	}
	entry.Info("migration finished")
}

// Close releases the log file, if Open created one.
func (l *Listener) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
