// Package cache invalidates the caches scenario operations leave stale,
// either in this process or through a remote alias.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/scenarioctl/scenarioctl/internal/scenario"
)

// SelfAlias selects the local installation.
const SelfAlias = "@self"

// RebuildCommand is the subcommand a remote installation runs to flush its
// caches.
const RebuildCommand = "cache-rebuild"

// ErrUnknownAlias indicates an alias with no configured command.
var ErrUnknownAlias = errors.New("unknown alias")

// Flusher is anything holding a cache that can be dropped.
type Flusher interface {
	ClearCache()
}

// Local clears in-process caches.
type Local struct {
	flushers []Flusher
}

var _ scenario.CacheInvalidator = (*Local)(nil)

func NewLocal(flushers ...Flusher) *Local {
	return &Local{flushers: flushers}
}

func (l *Local) Invalidate(context.Context) error {
	for _, f := range l.flushers {
		f.ClearCache()
	}
	return nil
}

// CommandRunner runs an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// Remote asks another installation to rebuild its caches by running the
// alias command followed by cache-rebuild.
type Remote struct {
	Alias   string
	Command []string
	Run     CommandRunner
}

var _ scenario.CacheInvalidator = (*Remote)(nil)

func (r *Remote) Invalidate(ctx context.Context) error {
	if len(r.Command) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAlias, r.Alias)
	}
	run := r.Run
	if run == nil {
		run = ExecRunner
	}

	args := append(append([]string{}, r.Command[1:]...), RebuildCommand)
	out, err := run(ctx, r.Command[0], args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("%s %s: %w", r.Alias, RebuildCommand, err)
		}
		return fmt.Errorf("%s %s: %w: %s", r.Alias, RebuildCommand, err, msg)
	}
	return nil
}

// New returns a Remote invalidator when alias names a remote installation,
// and a Local one otherwise.
func New(alias string, aliases map[string][]string, flushers ...Flusher) (scenario.CacheInvalidator, error) {
	alias = strings.TrimPrefix(strings.TrimSpace(alias), "@")
	if alias == "" || alias == strings.TrimPrefix(SelfAlias, "@") {
		return NewLocal(flushers...), nil
	}

	command, ok := aliases[alias]
	if !ok || len(command) == 0 {
		return nil, fmt.Errorf("%w: @%s", ErrUnknownAlias, alias)
	}
	return &Remote{Alias: "@" + alias, Command: command}, nil
}
