package infrastructure

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"snowalert.app/internal/ports"
)

func TestSlogLoggerAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLoggerAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Debug("debug message", ports.F("step", "fetch"))
	logger.Info("info message", ports.F("days", 7))
	logger.Warn("warn message")
	logger.Error("error message", ports.F("error", "boom"), ports.F("run_id", "abc"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	expected := []struct {
		level string
		msg   string
	}{
		{"DEBUG", "debug message"},
		{"INFO", "info message"},
		{"WARN", "warn message"},
		{"ERROR", "error message"},
	}

	for i, line := range lines {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, expected[i].level, entry["level"])
		assert.Equal(t, expected[i].msg, entry["msg"])
	}

	var last map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &last))
	assert.Equal(t, "boom", last["error"])
	assert.Equal(t, "abc", last["run_id"])
}

func TestSlogLoggerAdapter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLoggerAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "shown")
}

func TestSlogLoggerAdapter_NilUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(previous)

	NewSlogLoggerAdapter(nil).Info("through default")

	assert.Contains(t, buf.String(), "through default")
}
