package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})
	defer Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}})

	logger := WithTask("oneview_fc_network", "fc-a")
	resourceLogger := WithResource(logger, "/rest/fc-networks/1")
	resourceLogger.Debug().Msg("loaded")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "oneview_fc_network", entry["module"])
	assert.Equal(t, "fc-a", entry["task"])
	assert.Equal(t, "/rest/fc-networks/1", entry["resource_uri"])
	assert.Equal(t, "loaded", entry["message"])
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level    Level
		expected zerolog.Level
	}{
		{DebugLevel, zerolog.DebugLevel},
		{InfoLevel, zerolog.InfoLevel},
		{WarnLevel, zerolog.WarnLevel},
		{ErrorLevel, zerolog.ErrorLevel},
		{Level("verbose"), zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.zerolog())
		})
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})
	defer Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}})

	logger := WithComponent("dispatch")
	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	Logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
