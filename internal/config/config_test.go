package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "DEFAULT_PROVIDER", "DEFAULT_MODEL", "GENERATION_RATE_LIMIT",
		"GENERATION_BURST", "GENERATION_TIMEOUT", "GENERATION_MAX_TOKENS", "STORAGE_BACKEND", "TABLE_PREFIX", "SESSION_TTL", "DEBUG",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "openai", cfg.DefaultProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.DefaultModel)
	assert.Equal(t, 5.0, cfg.GenerationRateLimit)
	assert.Equal(t, 10, cfg.GenerationBurst)
	assert.Equal(t, 2*time.Minute, cfg.GenerationTimeout)
	assert.Equal(t, 1024, cfg.GenerationMaxTokens)
	assert.Equal(t, StorageDisk, cfg.StorageBackend)
	assert.Equal(t, "dev_", cfg.TablePrefix)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.Debug)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("DEBUG", "")
	t.Setenv("GENERATION_RATE_LIMIT", "0.5")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("GENERATION_BURST", "not-a-number")
	t.Setenv("GENERATION_MAX_TOKENS", "300")

	cfg := Load()

	assert.Equal(t, "prod_", cfg.TablePrefix)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 0.5, cfg.GenerationRateLimit)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.GenerationBurst)
	assert.Equal(t, 300, cfg.GenerationMaxTokens)
}

func TestGetTablePrefix(t *testing.T) {
	tests := []struct {
		env      string
		override string
		want     string
	}{
		{"prod", "", "prod_"},
		{"test", "", "test_"},
		{"dev", "", "dev_"},
		{"staging", "", "dev_"},
		{"prod", "custom_", "custom_"},
	}

	for _, tt := range tests {
		t.Run(tt.env+tt.override, func(t *testing.T) {
			t.Setenv("TABLE_PREFIX", tt.override)
			assert.Equal(t, tt.want, getTablePrefix(tt.env))
		})
	}
}
