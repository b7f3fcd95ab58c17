package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"bookline/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{}, config.AppConfig{Name: "bookline"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Nil(t, closer)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNew_Level(t *testing.T) {
	logger, _, err := New(config.LoggingConfig{Level: "debug"}, config.AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	// An unknown level falls back to info.
	logger, _, err = New(config.LoggingConfig{Level: "loud"}, config.AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer, err := New(
		config.LoggingConfig{Output: "file", FilePath: path},
		config.AppConfig{Name: "bookline", Environment: "test"},
	)
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	logger.Info().Str("event", "started").Msg("hello")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "bookline", entry["app"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "started", entry["event"])
	assert.Equal(t, "hello", entry["message"])
}

func TestNew_FileOutputRequiresPath(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, config.AppConfig{})
	assert.Error(t, err)
}
