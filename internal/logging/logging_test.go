package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatPretty, ParseFormat("pretty"))
	assert.Equal(t, FormatPretty, ParseFormat("bogus"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatJSON, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("frame budget changed", "to", "16ms")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "frame budget changed", line["msg"])
	assert.Equal(t, "16ms", line["to"])
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatPretty, slog.LevelDebug)

	logger.Debug("yielding to host", "queued", 2)

	assert.Contains(t, buf.String(), "yielding to host")
	assert.Contains(t, buf.String(), "queued")
}
