package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/jwliu/vantage/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.input), "level %q", tt.input)
	}
}

func TestWithFields(t *testing.T) {
	cfg := &config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"}
	log := New(cfg)

	// Derived loggers must not be the same instance
	derived := log.WithFields(map[string]interface{}{"date": "2026-01-05"})
	assert.NotSame(t, log, derived)

	withErr := log.WithError(assert.AnError)
	assert.NotSame(t, log, withErr)
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	// Should not panic
	log.Info("discarded")
	log.WithField("k", "v").Debug("discarded")
}
