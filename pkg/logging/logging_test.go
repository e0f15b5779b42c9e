package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restore(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestSetup_WritesConsoleAndFile(t *testing.T) {
	restore(t)
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "hub.log")

	closeLog, err := Setup(Options{Level: "debug", File: path, Out: &console})
	require.NoError(t, err)

	log.Info().Str("component", "broadcast").Msg("Observer connected")
	require.NoError(t, closeLog())

	assert.Contains(t, console.String(), "Observer connected")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "broadcast", entry["component"])
}

func TestSetup_FiltersBelowLevel(t *testing.T) {
	restore(t)
	var console bytes.Buffer

	_, err := Setup(Options{Level: "WARN", Out: &console})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestSetup_RejectsUnknownLevel(t *testing.T) {
	restore(t)
	_, err := Setup(Options{Level: "loud"})
	assert.Error(t, err)
}
