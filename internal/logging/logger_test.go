package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(buf *bytes.Buffer, level LogLevel) *PackLogger {
	return NewLogger(&LoggerConfig{
		Level:  level,
		Format: "json",
		Output: buf,
	})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var records []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		records = append(records, record)
	}
	return records
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"fatal", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, LevelDebug)

	logger.WithComponent("packager").
		With("component_path", "/src/header").
		Warn(context.Background(), errors.New("boom"), "compile failed", "compiler", "oc-template-jade-compiler")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "compile failed", record["msg"])
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "packager", record["component"])
	assert.Equal(t, "boom", record["error"])
	assert.Equal(t, "/src/header", record["component_path"])
	assert.Equal(t, "oc-template-jade-compiler", record["compiler"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, LevelWarn)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, nil, "warn")
	logger.Error(ctx, nil, "error")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "warn", records[0]["msg"])
	assert.Equal(t, "error", records[1]["msg"])
}

func TestOddFieldsAreDropped(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, LevelInfo)

	logger.Info(context.Background(), "odd", "key", "value", 42, "ignored", "dangling")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "value", records[0]["key"])
	assert.NotContains(t, records[0], "dangling")
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "text", Output: &buf})

	logger.Info(context.Background(), "packaged component", "name", "header")

	out := buf.String()
	assert.Contains(t, out, "ocpack")
	assert.Contains(t, out, "packaged component")
	assert.Contains(t, out, "header")
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	assert.NotPanics(t, func() {
		logger.Error(context.Background(), errors.New("x"), "ignored")
		logger.With("a", 1).WithComponent("b").Info(context.Background(), "ignored")
	})
}

func TestPerfLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, LevelInfo)
	ctx := context.Background()

	StartOperation(logger, "package").End(ctx, "components", 3)
	StartOperation(logger, "publish").EndWithError(ctx, errors.New("upload failed"))

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "package completed", records[0]["msg"])
	assert.Equal(t, "package", records[0]["operation"])
	assert.EqualValues(t, 3, records[0]["components"])
	assert.Contains(t, records[0], "duration")
	assert.Equal(t, "publish failed", records[1]["msg"])
	assert.Equal(t, "upload failed", records[1]["error"])
}
