// Package notify delivers user-facing progress and error messages.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/scenarioctl/scenarioctl/internal/scenario"
)

// ExecutionContext says where the orchestrator is running.
type ExecutionContext int

const (
	// ContextCLI prints to a terminal.
	ContextCLI ExecutionContext = iota
	// ContextEmbedded routes messages to a logger.
	ContextEmbedded
	// ContextSilent drops messages; read-only commands use it.
	ContextSilent
)

// New returns the notifier suited to ctx. logger is only used by
// ContextEmbedded and may be nil.
func New(ctx ExecutionContext, logger logrus.FieldLogger) scenario.Notifier {
	switch ctx {
	case ContextEmbedded:
		return NewLog(logger)
	case ContextSilent:
		return Discard{}
	default:
		return NewConsole(os.Stdout, os.Stderr)
	}
}

var (
	infoPrefix    = color.New(color.FgGreen).SprintFunc()
	warningPrefix = color.New(color.FgYellow).SprintFunc()
	errorPrefix   = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Console writes coloured lines. Info goes to out, warnings and errors to
// errOut.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

func NewConsole(out, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut}
}

func (c *Console) Info(msg string) {
	c.write(c.out, infoPrefix("✓"), msg)
}

func (c *Console) Warning(msg string) {
	c.write(c.errOut, warningPrefix("⚠"), msg)
}

func (c *Console) Error(msg string) {
	c.write(c.errOut, errorPrefix("✗"), msg)
}

func (c *Console) write(w io.Writer, prefix, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(w, "%s %s\n", prefix, msg)
}

// Log forwards messages to a logrus logger.
type Log struct {
	logger logrus.FieldLogger
}

// NewLog creates a Log notifier. A nil logger uses the logrus standard logger.
func NewLog(logger logrus.FieldLogger) *Log {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Log{logger: logger.WithField("component", "scenario")}
}

func (l *Log) Info(msg string)    { l.logger.Info(msg) }
func (l *Log) Warning(msg string) { l.logger.Warn(msg) }
func (l *Log) Error(msg string)   { l.logger.Error(msg) }

// Level is the severity of a recorded message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a recorded notification.
type Message struct {
	Level Level
	Text  string
}

// Recorder keeps messages in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Info(msg string)    { r.add(LevelInfo, msg) }
func (r *Recorder) Warning(msg string) { r.add(LevelWarning, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: msg})
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Drain returns everything recorded so far and forgets it.
func (r *Recorder) Drain() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}

// Texts returns the recorded messages at level.
func (r *Recorder) Texts(level Level) []string {
	var out []string
	for _, m := range r.Messages() {
		if m.Level == level {
			out = append(out, m.Text)
		}
	}
	return out
}

// Discard drops every message.
type Discard struct{}

func (Discard) Info(string)    {}
func (Discard) Warning(string) {}
func (Discard) Error(string)   {}

// Multi fans messages out to several notifiers.
type Multi []scenario.Notifier

func (m Multi) Info(msg string) {
	for _, n := range m {
		n.Info(msg)
	}
}

func (m Multi) Warning(msg string) {
	for _, n := range m {
		n.Warning(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}
