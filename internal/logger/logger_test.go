package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutLevelIsSilent(t *testing.T) {
	t.Setenv(EnvLevel, "")
	assert.Equal(t, zerolog.Disabled, New().GetLevel())
}

func TestNewParsesLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
		"bogus": zerolog.InfoLevel,
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			t.Setenv(EnvLevel, raw)
			t.Setenv(EnvMode, "production")
			assert.Equal(t, want, New().GetLevel())
		})
	}
}

func TestNewProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewProduction(&buf)
	l.Info().Str("request_id", "abc").Msg("Sent request")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "abc", line["request_id"])
	assert.Equal(t, "Sent request", line["message"])
	assert.Contains(t, line, "time")
}

func TestNewDevelopmentColorsLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewDevelopment(&buf)
	l.Warn().Msg("Received 401 Unauthorized")

	out := buf.String()
	assert.Contains(t, out, colorize("WRN", colorRed))
	assert.Contains(t, out, "Received 401 Unauthorized")
}
