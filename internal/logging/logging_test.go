package logging

import (
	"bytes"
	"context"
	"encoding/json"
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
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"warn", zerolog.WarnLevel},
		{"off", zerolog.Disabled},
		{"disabled", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSONToBuffer(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Out: &buf})

	logger.Info().Msg("hidden")
	logger.Warn().Str("batch", "smith").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "a buffer is not a terminal, so output is JSON")
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "smith", line["batch"])
	assert.Equal(t, "warn", line["level"])
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "console", Out: &buf, NoColor: true})
	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), "INF")
	assert.Contains(t, buf.String(), "hello")
}

func TestContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()), "missing logger falls back to nop")

	var buf bytes.Buffer
	logger := New(Config{Out: &buf})
	ctx := WithLogger(context.Background(), &logger)
	FromContext(ctx).Info().Msg("via context")
	assert.Contains(t, buf.String(), "via context")
}

func TestWithBatch(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Out: &buf})
	WithBatch(&logger, "lab-7").Info().Msg("x")
	assert.Contains(t, buf.String(), `"batch":"lab-7"`)
}
