package config

import (
	"testing"
	"time"

	"github.com/docker/go-units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("REPORT_WEBHOOK_URL", "")
	t.Setenv("MAX_UPLOAD_SIZE", "")
	t.Setenv("WEBHOOK_TIMEOUT", "")
	t.Setenv("ACK_MESSAGE", "")
	t.Setenv("CORS_ALLOW_ORIGINS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, int64(25*units.MiB), cfg.MaxUploadSize)
	assert.Equal(t, DefaultAckMessage, cfg.AckMessage)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.False(t, cfg.ForwardingEnabled())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("REPORT_WEBHOOK_URL", " https://collector.example/intake ")
	t.Setenv("WEBHOOK_TIMEOUT", "3s")
	t.Setenv("MAX_UPLOAD_SIZE", "512KiB")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.ForwardingEnabled())
	assert.Equal(t, "https://collector.example/intake", cfg.WebhookURL)
	assert.Equal(t, 3*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, int64(512*units.KiB), cfg.MaxUploadSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
}

func TestLoadConfig_UnlimitedUpload(t *testing.T) {
	t.Setenv("MAX_UPLOAD_SIZE", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Zero(t, cfg.MaxUploadSize)
}

func TestLoadConfig_InvalidUploadSize(t *testing.T) {
	t.Setenv("MAX_UPLOAD_SIZE", "lots")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_UPLOAD_SIZE")
}

func TestLoadConfig_NonPositiveTimeout(t *testing.T) {
	t.Setenv("WEBHOOK_TIMEOUT", "0s")

	_, err := LoadConfig()
	require.Error(t, err)
}
