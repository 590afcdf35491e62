package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforest/taskforest-api/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"DEBUG", slog.LevelDebug, false},
		{"Info", slog.LevelInfo, false},
		{"trace", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestSetup(t *testing.T) {
	log, err := Setup(config.ServerConfig{Port: 8080, LogLevel: "debug"})
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.True(t, log.Enabled(context.Background(), slog.LevelDebug))

	// An invalid level falls back to info instead of failing startup
	log, err = Setup(config.ServerConfig{Port: 8080, LogLevel: "bogus"})
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
}

func TestContextLogger(t *testing.T) {
	base := slog.Default().With(slog.String("trace_id", "abc123"))

	ctx := WithLogger(context.Background(), base)
	assert.Same(t, base, FromContext(ctx))
	assert.Same(t, base, FromContextOrDefault(ctx, nil))

	// Without a context logger, FromContext falls back to the default
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	// FromContextOrDefault prefers the supplied fallback
	componentLogger := slog.Default().With(slog.String("component", "test"))
	assert.Same(t, componentLogger, FromContextOrDefault(context.Background(), componentLogger))
	assert.Same(t, slog.Default(), FromContextOrDefault(context.Background(), nil))
}
