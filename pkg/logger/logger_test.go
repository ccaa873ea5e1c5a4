package logger

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tavern.log")

	require.NoError(t, Init(LogConfig{Level: "debug", Format: "json", File: path}))
	defer Close()

	Info().Str("k", "v").Msg("hello")
	assert.FileExists(t, path)
}

func TestGetBeforeInit(t *testing.T) {
	assert.NotNil(t, Get())
}
