package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		level LogLevel
		want  int
	}{
		{"trace logs everything", LogLevelTrace, 5},
		{"debug skips trace", LogLevelDebug, 4},
		{"info default", LogLevelInfo, 3},
		{"error only", LogLevelError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			log := NewSlogLogger(buf, tt.level, time.UTC)

			log.Trace("t")
			log.Debug("d")
			log.Info("i")
			log.Warn("w")
			log.Error("e")

			assert.Len(t, decodeLines(t, buf), tt.want)
		})
	}
}

func TestModuleAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelDebug, time.UTC).Module("retrieval").Module("stage")

	log.With(String("artist", "anuv_jain")).Info("stage completed",
		Int("rows", 12),
		Float64("score", 0.123456),
		Duration("elapsed", 1500*time.Millisecond))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "retrieval.stage", e["module"])
	assert.Equal(t, "anuv_jain", e["artist"])
	assert.InDelta(t, 12, e["rows"], 0)
	assert.InDelta(t, 0.123, e["score"], 1e-9)
	assert.Equal(t, "1.5s", e["elapsed"])
	assert.Equal(t, "INFO", e["level"])
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	ctx := WithTraceID(context.Background(), "req-42")
	log.WithContext(ctx).Info("generation started")
	log.WithContext(context.Background()).Info("no trace")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "req-42", entries[0]["trace_id"])
	assert.NotContains(t, entries[1], "trace_id")
}

func TestTraceLevelLabel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	NewSlogLogger(buf, LogLevelTrace, time.UTC).Trace("sql query")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "TRACE", entries[0]["level"])
}

func TestErrorFieldNil(t *testing.T) {
	t.Parallel()

	f := Error(nil)
	assert.Equal(t, "error", f.Key)
	assert.Nil(t, f.Value)
}

func TestCentralLoggerModuleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	llmLog := filepath.Join(dir, "llm.log")

	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: false},
		ModuleOutputs: map[string]ModuleOutput{
			"llm": {Enabled: true, FilePath: llmLog, Level: "debug"},
		},
	})
	require.NoError(t, err)

	cl.Module("llm").Debug("provider call", String("provider", "gemini"))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(llmLog)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"provider":"gemini"`)
	assert.Contains(t, string(data), `"module":"llm"`)
}

func TestInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := &LoggingConfig{}
	applyConfigDefaults(cfg)

	assert.Equal(t, DefaultLogLevel, cfg.DefaultLevel)
	require.NotNil(t, cfg.Console)
	assert.True(t, cfg.Console.Enabled)
	require.NotNil(t, cfg.FileOutput)
	assert.False(t, cfg.FileOutput.Enabled)
	assert.Empty(t, cfg.ModuleOutputs)

	withFile := &LoggingConfig{FileOutput: &FileOutput{Enabled: true, Path: "logs/x.log"}}
	applyConfigDefaults(withFile)
	assert.Contains(t, withFile.ModuleOutputs, "llm")
	assert.Contains(t, withFile.ModuleOutputs, "api")
}
