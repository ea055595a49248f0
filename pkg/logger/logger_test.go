package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew_WritesJSONToFile tests file output with the json encoder
func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	l, err := New(Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	l.Info("task accepted", String("task_id", "t-1"), Duration("latency", 1500*time.Millisecond))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"message":"task accepted"`), line)
	assert.True(t, strings.Contains(line, `"task_id":"t-1"`), line)
	assert.True(t, strings.Contains(line, `"latency_seconds":1.5`), line)
}

// TestNew_LevelFilters tests that records below the level are dropped
func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	l, err := New(Config{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

// TestNew_InvalidOutput tests that an unwritable path is reported
func TestNew_InvalidOutput(t *testing.T) {
	_, err := New(Config{Level: "info", Output: filepath.Join(t.TempDir(), "missing", "app.log")})
	assert.Error(t, err)
}
