package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, lvl zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(lvl)
	Use(zap.New(core))
	t.Cleanup(func() { Use(zap.NewNop()) })
	return logs
}

func TestStructuredFields(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	Info("event created", "id", 7, "date", "01/02/2024")
	Error("save failed", errors.New("disk full"), "path", "/tmp/x")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "event created", entries[0].Message)
	assert.Equal(t, int64(7), entries[0].ContextMap()["id"])
	assert.Equal(t, "01/02/2024", entries[0].ContextMap()["date"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["error"])
	assert.Equal(t, "/tmp/x", entries[1].ContextMap()["path"])
}

func TestObserverLevelFilters(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)

	Debug("hidden")
	Info("hidden")
	Warn("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "", want: LevelInfo},
		{in: "debug", want: LevelDebug},
		{in: " Warning ", want: LevelWarn},
		{in: "ERROR", want: LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestConfigure(t *testing.T) {
	t.Cleanup(func() {
		SetLevel(LevelInfo)
		Use(zap.NewNop())
	})

	require.NoError(t, Configure(LevelDebug, "json"))
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	require.NoError(t, Configure("error", "console"))
	assert.Equal(t, zapcore.ErrorLevel, level.Level())

	assert.Error(t, Configure(LevelInfo, "xml"))
	assert.Error(t, Configure("verbose", "json"))
}
