package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readJSONLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()

	line := strings.TrimSpace(buf.String())
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	require.NotEmpty(t, line)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &event))
	return event
}

func TestNewJSONSetsLevelAndComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{Format: "json", Level: "warn", Component: "quota"}, &buf)

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Str("account_id", "acc-1").Msg("settings unavailable")
	event := readJSONLine(t, &buf)
	assert.Equal(t, "quota", event["component"])
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "acc-1", event["account_id"])
}

func TestNewAutoFormatWritesJSONWhenNotATerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{}, &buf)
	logger.Info().Msg("hello")

	event := readJSONLine(t, &buf)
	assert.Equal(t, "hello", event["message"])
}

func TestComponentAddsField(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := Component(New(Config{Format: "json"}, &buf), "sweeper")
	logger.Info().Msg("scan")

	assert.Equal(t, "sweeper", readJSONLine(t, &buf)["component"])
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		"WARNING":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
		"bogus":    zerolog.InfoLevel,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseLevel(input), input)
	}
}
