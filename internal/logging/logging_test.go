package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info("dropped")
	logger.Warn("kept", "booking_id", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.EqualValues(t, 7, entry["booking_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestContextLogger(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, ctx, ContextWithLogger(ctx, nil))
}

func TestScopedPrefersRequestLogger(t *testing.T) {
	var fallbackBuf, requestBuf bytes.Buffer
	fallback := New(&fallbackBuf, "info")
	request := New(&requestBuf, "info").With("request_id", "req-9")

	Scoped(context.Background(), fallback, "service", "BookingService", "CreateBooking", "booking_id", 3).Info("created")
	Scoped(ContextWithLogger(context.Background(), request), fallback, "handler", "ScheduleHandler", "", "date", "2024-03-04").Info("listed")

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(fallbackBuf.Bytes(), &first))
	require.NoError(t, json.Unmarshal(requestBuf.Bytes(), &second))

	assert.Equal(t, "BookingService", first["service"])
	assert.Equal(t, "CreateBooking", first["operation"])
	assert.EqualValues(t, 3, first["booking_id"])

	assert.Equal(t, "ScheduleHandler", second["handler"])
	assert.Equal(t, "req-9", second["request_id"])
	assert.NotContains(t, second, "operation")
	assert.Same(t, slog.Default(), OrDefault(nil))
}
