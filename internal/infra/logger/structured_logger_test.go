package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) Logger {
	return NewStructuredLogger(LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "contractflow",
		Output:      buf,
	})
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestStructuredLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf).WithFields(map[string]interface{}{"component": "engine"})

	ctx := ContextWithCorrelationID(context.Background(), "cid-1")
	log.Info(ctx, "hello", map[string]interface{}{"contract_id": "c1"})

	entry := decode(t, &buf)
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "contractflow", entry["service"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "c1", entry["contract_id"])
	assert.Equal(t, "cid-1", entry["correlation_id"])
}

func TestStructuredLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	newBufferLogger(&buf).Error(context.Background(), "failed", errors.New("boom"), nil)

	entry := decode(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
}

func TestStructuredLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	newBufferLogger(&buf).Debug(context.Background(), "hidden", nil)
	assert.Zero(t, buf.Len())
}

func TestLogTransition(t *testing.T) {
	var buf bytes.Buffer
	LogTransition(context.Background(), newBufferLogger(&buf), "submit", "c1", "u1", "invalid_state", errors.New("only draft contracts can be submitted"))

	entry := decode(t, &buf)
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "submit", entry["action"])
	assert.Equal(t, "invalid_state", entry["outcome"])
	assert.Equal(t, "only draft contracts can be submitted", entry["reason"])
}

func TestCorrelationID_Missing(t *testing.T) {
	assert.Empty(t, CorrelationID(context.Background()))
}
