package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PUBLISH_DELAY", "")
	t.Setenv("PUBLISH_MAX_ATTEMPTS", "")
	t.Setenv("STORAGE_ENDPOINT", "")

	cfg := LoadConfig()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.APIURL)
	assert.Equal(t, "202405", cfg.Linkedin.APIVersion)
	assert.Equal(t, time.Hour, cfg.Publish.DefaultDelay)
	assert.Equal(t, 3, cfg.Publish.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Publish.RetryDelay)
	assert.False(t, cfg.StorageEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PUBLISH_DELAY", "5m")
	t.Setenv("PUBLISH_MAX_ATTEMPTS", "5")
	t.Setenv("STORAGE_ENDPOINT", "localhost:9000")
	t.Setenv("STORAGE_BUCKET_NAME", "media")
	t.Setenv("STORAGE_USE_SSL", "false")

	cfg := LoadConfig()

	assert.Equal(t, 5*time.Minute, cfg.Publish.DefaultDelay)
	assert.Equal(t, 5, cfg.Publish.MaxAttempts)
	assert.False(t, cfg.Storage.UseSSL)
	assert.True(t, cfg.StorageEnabled())
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PUBLISH_RETRY_DELAY", "soon")
	t.Setenv("WORKER_CONCURRENCY", "-2")

	cfg := LoadConfig()

	assert.Equal(t, time.Second, cfg.Publish.RetryDelay)
	assert.Equal(t, 10, cfg.Publish.WorkerConcurrency)
}
