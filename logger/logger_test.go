package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestInitJSON(t *testing.T) {
	t.Cleanup(func() { Logger = zerolog.Nop() })

	var buf bytes.Buffer
	Init("info", "json", &buf)

	Logger.Debug().Msg("hidden")
	Logger.Info().Str("product_id", "7").Msg("product updated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "product updated", entry["message"])
	assert.Equal(t, "7", entry["product_id"])
	assert.Equal(t, "stockroom", entry["service"])
}

func TestInitConsole(t *testing.T) {
	t.Cleanup(func() { Logger = zerolog.Nop() })

	var buf bytes.Buffer
	Init("debug", "console", &buf)
	Logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
