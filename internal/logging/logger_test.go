package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriterRenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, slog.LevelInfo)
	log.Error("load failed", "error", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "err=boom")
	assert.NotContains(t, out, "error=boom")
}

func TestNewWriterHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, slog.LevelWarn)
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewNop(t *testing.T) {
	assert.NotNil(t, NewNop())
	NewNop().Error("dropped")
}
