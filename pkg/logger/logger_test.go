package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightminer/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"DEBUG", zerolog.DebugLevel},
	}

	for _, tt := range tests {
		level, err := parseLogLevel(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, level, tt.input)
	}

	_, err := parseLogLevel("noisy")
	assert.Error(t, err)
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(&config.LoggingConfig{Level: "noisy"})
	assert.Error(t, err)
}

func TestFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "insightminer.log")

	log, err := New(&config.LoggingConfig{Level: "info", File: logFile})
	require.NoError(t, err)

	log.InfoWithFields("download complete", map[string]interface{}{
		"media_pk": "12345",
	})

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "download complete")
	assert.Contains(t, string(data), "12345")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	base, err := New(&config.LoggingConfig{Level: "info"})
	require.NoError(t, err)

	child := base.WithField("media_pk", "1")
	grandchild := child.WithFields(map[string]interface{}{"attempt": 2})

	assert.NotSame(t, base, child)
	assert.NotSame(t, child, grandchild)
}

func TestNopLoggerSwallowsEverything(t *testing.T) {
	log := NewNopLogger()

	log.Debug("a")
	log.Info("b")
	log.Warn("c")
	log.Error("d")
	log.WithField("k", "v").WithError(assert.AnError).Info("chained")
	log.InfoWithFields("fields", map[string]interface{}{"k": "v"})
}

func TestGetLoggerNeverNil(t *testing.T) {
	assert.NotNil(t, GetLogger())
}
