package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/CashFlow-Sentinel/internal/config"
)

func observed(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestLoggerEmitsFields(t *testing.T) {
	log, logs := observed(zapcore.DebugLevel)

	log.Info("invoice scored",
		String("invoice_id", "INV-001"),
		Int("risk_score", 72),
		Float64("probability", 0.72),
		Bool("fallback", false),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "invoice scored", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "INV-001", fields["invoice_id"])
	assert.Equal(t, int64(72), fields["risk_score"])
	assert.Equal(t, 0.72, fields["probability"])
	assert.Equal(t, false, fields["fallback"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	log, logs := observed(zapcore.WarnLevel)
	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("visible")
	assert.Equal(t, 1, logs.Len())
}

func TestLoggerWithPropagatesFields(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)
	child := log.With(String("component", "scheduler"))
	child.Info("plan generated")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "scheduler", fields["component"])
}

func TestLoggerNamed(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)
	log.Named("scoring").Info("hello")
	assert.Equal(t, "scoring", logs.All()[0].LoggerName)
}

func TestErrField(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)
	log.Error("save failed", Err(errors.New("boom")))
	assert.Equal(t, "boom", logs.All()[0].ContextMap()["error"])

	log.Error("no cause", Err(nil))
	assert.Equal(t, "<nil>", logs.All()[1].ContextMap()["error"])
}

func TestDurationField(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)
	log.Info("timed", Duration("elapsed", 250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, logs.All()[0].ContextMap()["elapsed"])
}

func TestNewLoggerBuilds(t *testing.T) {
	log, err := NewLogger(config.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNopLoggerIsSilent(t *testing.T) {
	log := NewNopLogger()
	// Must not panic and must chain.
	log.With(String("k", "v")).Named("x").Info("ignored")
}
