package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithWriter("warn", "json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	l.Info().Msg("dropped")
	l.Warn().Str("ticket_id", "42").Msg("notification failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "42", entry["ticket_id"])
	assert.Equal(t, "apihub-support", entry["service"])
}

func TestNewRejectsUnknownInput(t *testing.T) {
	_, err := newWithWriter("loud", "json", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = newWithWriter("info", "xml", &bytes.Buffer{})
	assert.EqualError(t, err, "unsupported log format")
}
