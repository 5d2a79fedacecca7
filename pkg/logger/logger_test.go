package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestJSONFormatAndWith(t *testing.T) {
	defer func() { Log = nil }()

	var buf bytes.Buffer
	InitWriter(&buf, "info", "json")
	With("actor", "alice@chat:chat:template.os").Warn("relay_failed", "target", "bob")
	Debug("dropped")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "relay_failed", rec["msg"])
	assert.Equal(t, "alice@chat:chat:template.os", rec["actor"])
	assert.Equal(t, "bob", rec["target"])
}

func TestHelpersBeforeInit(t *testing.T) {
	Log = nil
	Info("noop")
	With("k", "v").Info("discarded")
}
