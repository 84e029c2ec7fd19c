package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsAreEncoded(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.DebugLevel).With(String("component", "risk"))

	l.Info("check evaluated",
		String("ticker", "INFY"),
		Int("bars", 60),
		Float64("value", 1.25),
		Bool("passed", true),
		Duration("took", 15*time.Millisecond),
		Strings("notes", []string{"a", "b"}),
		Error(errors.New("boom")),
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "check evaluated", got["message"])
	assert.Equal(t, "risk", got["component"])
	assert.Equal(t, "INFY", got["ticker"])
	assert.Equal(t, 60.0, got["bars"])
	assert.Equal(t, 1.25, got["value"])
	assert.Equal(t, true, got["passed"])
	assert.Equal(t, 15.0, got["took"])
	assert.Equal(t, "a, b", got["notes"])
	assert.Equal(t, "boom", got["error"])
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	assert.NotPanics(t, func() {
		l.Error("ignored", String("k", "v"))
		l.With(Int("n", 1)).Warn("ignored too")
	})
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestCorrelationFieldsAndLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.WarnLevel)

	l.Info("dropped", Ticker("TCS"))
	assert.Zero(t, buf.Len())

	l.Warn("kept", Ticker("TCS"), RunID("run-7"), Error(nil))
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "TCS", got["ticker"])
	assert.Equal(t, "run-7", got["run_id"])
}
