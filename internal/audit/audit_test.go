package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenarioctl/scenarioctl/internal/scenario"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestMigrationFinished(t *testing.T) {
	var buf bytes.Buffer
	l := NewListener(&buf)
	ctx := context.Background()

	l.MigrationFinished(ctx, scenario.MigrationRecord{
		RunID: "run-1", Scenario: "dfs_tec", ID: "dfs_tec_user", Label: "Users",
		Direction: scenario.Forward, Outcome: scenario.OutcomeSuccess, Duration: 1500 * time.Millisecond,
	})
	l.MigrationFinished(ctx, scenario.MigrationRecord{
		RunID: "run-1", Scenario: "dfs_tec", ID: "dfs_tec_page",
		Direction: scenario.Forward, Outcome: scenario.OutcomeFailure, Err: errors.New("boom"),
	})

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 2)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "dfs_tec_user", lines[0]["migration"])
	assert.Equal(t, "forward", lines[0]["direction"])
	assert.Equal(t, float64(1500), lines[0]["duration_ms"])

	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["error"])
	assert.Equal(t, "failure", lines[1]["outcome"])
}

func TestOpenAppends(t *testing.T) {
	dir := t.TempDir()
	rec := scenario.MigrationRecord{ID: "m1", Direction: scenario.Forward, Outcome: scenario.OutcomeSuccess}

	for i := 0; i < 2; i++ {
		l, err := Open(dir)
		require.NoError(t, err)
		l.MigrationFinished(context.Background(), rec)
		require.NoError(t, l.Close())
	}

	data, err := os.ReadFile(filepath.Join(dir, "logs", FileName))
	require.NoError(t, err)
	assert.Len(t, decodeLines(t, data), 2)
}

func TestNilListener(t *testing.T) {
	var l *Listener
	l.MigrationFinished(context.Background(), scenario.MigrationRecord{})
	assert.NoError(t, l.Close())
}
