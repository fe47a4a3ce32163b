package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestLevelFiltersAndComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "planner", "warn")
	l.Infof("dropped")
	l.With("case", "ieee14").Warnf("solve took %ds", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "planner", rec["component"])
	assert.Equal(t, "ieee14", rec["case"])
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "solve took 3s", rec["message"])
}

func TestDebugwFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "bnb", "debug")
	l.Debugw("node", map[string]any{"depth": 4})
	assert.Contains(t, buf.String(), `"depth":4`)
}
