package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mlerrors "github.com/plantops/forgeml/pkg/errors"
)

func TestLoggerInterface(t *testing.T) {
	testLogger := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", "operation", "test")
	testLogger.Warn("warning message", "warning_code", "TEST_WARNING")
	testLogger.Error("error message", fmt.Errorf("test error"), ErrorCodeKey, "TEST_ERROR")

	entries := testLogger.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, LevelError, entries[3].Level)
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		assert.True(t, testLogger.ContainsMessage(msg), msg)
	}
	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42))
	assert.True(t, testLogger.ContainsField("error", "test error"))
	assert.True(t, testLogger.ContainsField(ErrorCodeKey, "TEST_ERROR"))
	assert.Contains(t, testLogger.String(), "ERROR error message error=test error")
}

func TestLoggerWith(t *testing.T) {
	testLogger := NewTestLogger(LevelDebug)

	contextLogger := testLogger.With(
		ModelNameKey, "gradient_boosting",
		ComponentKey, "trainer",
	)
	contextLogger.Info("contextual message", OperationKey, OperationFit)
	testLogger.Info("plain")

	assert.True(t, testLogger.ContainsField(ModelNameKey, "gradient_boosting"))
	assert.True(t, testLogger.ContainsField(ComponentKey, "trainer"))
	assert.True(t, testLogger.ContainsField(OperationKey, OperationFit))
	assert.NotContains(t, testLogger.Entries()[1].Fields, ModelNameKey)
}

func TestLoggerEnabled(t *testing.T) {
	testLogger := NewTestLogger(LevelInfo)
	ctx := context.Background()

	assert.True(t, testLogger.Enabled(ctx, LevelInfo))
	assert.True(t, testLogger.Enabled(ctx, LevelError))
	assert.False(t, testLogger.Enabled(ctx, LevelDebug))

	testLogger.Debug("hidden")
	testLogger.Info("visible")
	assert.False(t, testLogger.ContainsMessage("hidden"))
	assert.True(t, testLogger.ContainsMessage("visible"))
}

func TestTestLoggerProvider(t *testing.T) {
	provider := NewTestLoggerProvider(LevelWarn)
	logger := provider.GetLoggerWithName("storage")

	logger.Info("dropped")
	provider.SetLevel(LevelInfo)
	logger.Info("kept")

	entries := provider.Logger().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, "storage", entries[0].Fields[ComponentKey])
}

func TestConcurrentLogging(t *testing.T) {
	testLogger := NewTestLogger(LevelInfo)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l := testLogger.With(WorkerIDKey, id)
			for i := 0; i < 25; i++ {
				l.Info("tick", IterationKey, i)
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, testLogger.Entries(), 200)

	testLogger.Clear()
	assert.Empty(t, testLogger.String())
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZerologProvider(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(LevelInfo, &buf)

	logger := provider.GetLoggerWithName("trainer").With(ModelNameKey, "linear")
	logger.Debug("hidden")
	logger.Info("training started", SamplesKey, 120, FeaturesKey, 3)
	logger.Error("training failed", mlerrors.NewInsufficientDataError(5, 10), TargetKey, "yield")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "training started", lines[0]["message"])
	assert.Equal(t, "trainer", lines[0][ComponentKey])
	assert.Equal(t, "linear", lines[0][ModelNameKey])
	assert.Equal(t, 120.0, lines[0][SamplesKey])

	assert.Equal(t, "error", lines[1]["level"])
	assert.Contains(t, lines[1]["error"], "insufficient data")
	assert.Equal(t, "yield", lines[1][TargetKey])
}

func TestZerologProviderSetLevel(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(LevelError, &buf)
	logger := provider.GetLogger()
	ctx := context.Background()

	assert.False(t, logger.Enabled(ctx, LevelWarn))
	logger.Warn("suppressed")
	assert.Zero(t, buf.Len())

	// 既存のロガーにも反映される
	provider.SetLevel(LevelDebug)
	assert.True(t, logger.Enabled(ctx, LevelDebug))
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestZerologObjectFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologProvider(LevelDebug, &buf).GetLogger()

	logger.Warn("metric undefined", "warning", mlerrors.NewUndefinedMetricWarning("r2", "constant target", 0))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	w, ok := lines[0]["warning"].(map[string]any)
	require.True(t, ok, "warning should be logged as an object")
	assert.Equal(t, "r2", w["metric"])
	assert.Equal(t, "UndefinedMetricWarning", w["type"])
}

func TestSetProviderRoutesWarnings(t *testing.T) {
	previous := GetProvider()
	defer SetProvider(previous)

	var buf bytes.Buffer
	SetProvider(NewZerologProvider(LevelInfo, &buf))
	mlerrors.Warn(mlerrors.NewDroppedRowsWarning(10, 2))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "warnings", lines[0][ComponentKey])
	assert.Contains(t, lines[0]["message"], "2 of 10 rows dropped")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
	assert.Panics(t, func() { ToLogLevel("verbose") })
	assert.Equal(t, "WARN", ToLogLevel("warn").String())
}

func TestNewRotatingWriter(t *testing.T) {
	path := t.TempDir() + "/forgeml.log"
	w := NewRotatingWriter(path, 1, 2)
	defer w.Close()

	logger := NewZerologProvider(LevelInfo, w).GetLogger()
	logger.Info("rotated sink")
	require.NoError(t, w.Close())
}

func BenchmarkZerologLogger(b *testing.B) {
	var buf bytes.Buffer
	logger := NewZerologProvider(LevelInfo, &buf).GetLoggerWithName("bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("tick", IterationKey, i, LossKey, 0.5)
	}
}
