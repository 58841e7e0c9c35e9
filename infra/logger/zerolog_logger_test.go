package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Infow("info", map[string]any{"route": "r1"})
	l.Warnf("warn")
	l.Errorf("error")
}

func TestNewWithWriter_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "engine", "info")
	l.Debugf("hidden")
	l.Infow("schedule computed", map[string]any{"route_id": "r1", "duties": 2})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
	assert.Equal(t, "engine", m["component"])
	assert.Equal(t, "r1", m["route_id"])
	assert.Equal(t, "info", m["level"])
	assert.EqualValues(t, 2, m["duties"])
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Infow("x", nil)
	l.Errorf("y")
}
