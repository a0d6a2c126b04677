package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 8502, cfg.Server.Port)
	assert.Equal(t, "instagram_session.json", cfg.Instagram.SessionFile)
	assert.Equal(t, "hash_cache.json", cfg.Dedup.StorePath)
	assert.Equal(t, 30*time.Second, cfg.Queue.DrainInterval)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
instagram:
  username: tester
folders:
  images: /data/images
  videos: /data/videos
server:
  port: 9000
rate_limit:
  requests_per_minute: 30
`), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "tester", cfg.Instagram.Username)
	assert.Equal(t, "/data/images", cfg.Folders.Images)
	assert.Equal(t, "/data/videos", cfg.Folders.Videos)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)

	// Untouched sections keep their defaults
	assert.Equal(t, 3, cfg.Download.RetryAttempts)
}

func TestLoadFromFileMissingPathIsError(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INSIGHTMINER_USERNAME", "envuser")
	t.Setenv("INPUT_FOLDER", "/env/images")
	t.Setenv("VIDEO_FOLDER", "/env/videos")
	t.Setenv("INSIGHTMINER_PORT", "9100")
	t.Setenv("INSTAGRAM_RETRY_ATTEMPTS", "5")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "envuser", cfg.Instagram.Username)
	assert.Equal(t, "/env/images", cfg.Folders.Images)
	assert.Equal(t, "/env/videos", cfg.Folders.Videos)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Download.RetryAttempts)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"username":     "flaguser",
		"image-folder": "/flag/images",
		"port":         9200,
		"log-level":    "debug",
	})

	assert.Equal(t, "flaguser", cfg.Instagram.Username)
	assert.Equal(t, "/flag/images", cfg.Folders.Images)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.Download.Timeout = 0 }},
		{"zero retries", func(c *Config) { c.Download.RetryAttempts = 0 }},
		{"empty image folder", func(c *Config) { c.Folders.Images = "" }},
		{"empty video folder", func(c *Config) { c.Folders.Videos = "" }},
		{"empty store path", func(c *Config) { c.Dedup.StorePath = "" }},
		{"zero drain interval", func(c *Config) { c.Queue.DrainInterval = 0 }},
		{"zero rate limit", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "noisy" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Instagram.Username = "saved"
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "saved", loaded.Instagram.Username)
}
