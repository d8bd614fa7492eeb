package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWriter_AutoFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(&buf, "info", FormatAuto)
	require.NoError(t, err)

	log.Info("accepted", zap.Int("fd", 7))
	log.Debug("hidden")
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "accepted", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 7, entry["fd"])
}

func TestNewWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(&buf, "debug", FormatConsole)
	require.NoError(t, err)

	log.Debug("closed by peer", zap.String("remote", "127.0.0.1:5000"))
	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "closed by peer")
	assert.Contains(t, out, `"remote": "127.0.0.1:5000"`)
	assert.NotContains(t, out, "\x1b[", "no color for non-terminal writers")
}

func TestNewWriter_Invalid(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, "loud", FormatJSON)
	assert.Error(t, err)
	_, err = NewWriter(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
