package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobmux/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("console only", func(t *testing.T) {
		cfg := config.DefaultLoggingConfig()
		logger, err := NewLogger(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("nothing enabled still logs", func(t *testing.T) {
		cfg := config.DefaultLoggingConfig()
		cfg.Console.Enabled = false
		logger, err := NewLogger(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("file logging creates the log directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "logs")
		cfg := config.DefaultLoggingConfig()
		cfg.Console.Enabled = false
		cfg.File.Enabled = true
		cfg.Dir = dir

		logger, err := NewLogger(cfg)
		require.NoError(t, err)
		logger.Info("hello")
		logger.Error("boom")
		require.NoError(t, Shutdown())

		_, err = os.Stat(filepath.Join(dir, "blobmux.log"))
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(dir, "errors.log"))
		assert.NoError(t, err)

		// info stays out of the errors file
		data, err := os.ReadFile(filepath.Join(dir, "errors.log"))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "hello")
		assert.Contains(t, string(data), "boom")
	})
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseLevel(tc.in))
	}
}

func TestLevelFloor(t *testing.T) {
	var buf bytes.Buffer
	handler := newLevelFloor(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}), slog.LevelWarn)
	logger := slog.New(handler)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestFanout(t *testing.T) {
	var a, b bytes.Buffer
	handler := newFanout([]slog.Handler{
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	})
	logger := slog.New(handler)

	logger.Info("only first")
	logger.Error("both")

	assert.Contains(t, a.String(), "only first")
	assert.Contains(t, a.String(), "both")
	assert.NotContains(t, b.String(), "only first")
	assert.Contains(t, b.String(), "both")
}

func TestFanoutWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := newFanout([]slog.Handler{
		slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	})
	logger := slog.New(handler).With("component", "healer")

	logger.Info("msg")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "healer", record["component"])
}
