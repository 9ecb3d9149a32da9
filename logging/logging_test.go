package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger(t *testing.T) {
	t.Run("writes JSON records", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		logger.Info("test message", slog.String("stage", "routes"), slog.Int("count", 42))

		output := buf.String()
		assert.Contains(t, output, `"level":"INFO"`)
		assert.Contains(t, output, `"msg":"test message"`)
		assert.Contains(t, output, `"stage":"routes"`)
		assert.Contains(t, output, `"count":42`)
	})

	t.Run("respects level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelWarn)

		logger.Info("info message")
		LogWarning(logger, "warning message", slog.String("route_id", "r"))

		output := buf.String()
		assert.NotContains(t, output, "info message")
		assert.Contains(t, output, "warning message")
		assert.Contains(t, output, `"route_id":"r"`)
	})
}

func TestLoggerHelpers(t *testing.T) {
	t.Run("LogError", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogError(logger, "conversion failed", assert.AnError, slog.String("data_root", "mta/"))

		output := buf.String()
		assert.Contains(t, output, `"level":"ERROR"`)
		assert.Contains(t, output, `"msg":"conversion failed"`)
		assert.Contains(t, output, `"error":"`+assert.AnError.Error()+`"`)
		assert.Contains(t, output, `"data_root":"mta/"`)
	})

	t.Run("LogOperation skips zero durations", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogOperation(logger, "routes selected", slog.Int("routes", 3), slog.Duration("duration", 0))

		output := buf.String()
		assert.Contains(t, output, `"routes":3`)
		assert.NotContains(t, output, "duration")
	})

	t.Run("nil logger", func(t *testing.T) {
		LogError(nil, "x", assert.AnError)
		LogOperation(nil, "x")
		LogWarning(nil, "x")
	})
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	level, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	logger := Discard()
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}
