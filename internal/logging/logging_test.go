package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureWriter_JSON(t *testing.T) {
	defer ConfigureCliLogging()

	var buf bytes.Buffer
	require.NoError(t, ConfigureWriter(&buf, "debug", "json"))

	log.WithField("run_id", "abc").Debug("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, "debug", entry["level"])
}

func TestConfigureWriter_LevelFilters(t *testing.T) {
	defer ConfigureCliLogging()

	var buf bytes.Buffer
	require.NoError(t, ConfigureWriter(&buf, "warn", "text"))

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestConfigureWriter_Invalid(t *testing.T) {
	defer ConfigureCliLogging()

	var buf bytes.Buffer
	assert.Error(t, ConfigureWriter(&buf, "loud", "text"))
	assert.Error(t, ConfigureWriter(&buf, "info", "xml"))
}
