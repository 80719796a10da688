package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestLogger_InjectsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromConfig(Config{Service: "mcsim", Module: "test", Output: &buf})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.With("run", "r1").InfoContext(ctx, "simulation finished", "paths", 100)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, sc.TraceID().String(), rec["trace_id"])
	assert.Equal(t, sc.SpanID().String(), rec["span_id"])
	assert.Equal(t, "mcsim", rec["service"])
	assert.Equal(t, "r1", rec["run"])
	assert.Contains(t, rec, "timestamp")
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromConfig(Config{Level: "warn", Output: &buf})

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.SetLevel("debug")
	l.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogger_FileAndConsole(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "mcsim.log")
	l := NewFromConfig(Config{Format: "text", File: file, MaxSize: 1, Output: &buf})

	l.Info("both targets")
	assert.Contains(t, buf.String(), "both targets")
	assert.FileExists(t, file)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("WARNING").String())
	assert.Equal(t, "INFO", ParseLevel("unknown").String())
}
