package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONWithServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(Config{Level: "debug", Output: &buf}), "ingest")

	log.Info().Int("chunks", 3).Msg("ingested")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ragpipe", entry["service"])
	assert.Equal(t, "ingest", entry["component"])
	assert.Equal(t, "ingested", entry["message"])
	assert.Equal(t, float64(3), entry["chunks"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "verbose", Output: &buf})

	log.Debug().Msg("dropped")
	log.Info().Msg("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
