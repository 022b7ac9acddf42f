package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromEnv(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for env, want := range tests {
		t.Run(env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", env)
			assert.Equal(t, want, levelFromEnv())
		})
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger().With("run_id", "abc")
	assert.NotPanics(t, func() {
		l.Info("hello", "k", 1)
		l.Error("oops", "error", "boom")
		l.Debug("dbg")
		l.Warn("careful")
	})
}
