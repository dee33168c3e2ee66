package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Providers.OpenAI.Model)
	assert.Equal(t, "eleven_multilingual_v2", cfg.Providers.ElevenLabs.ModelID)
	assert.InDelta(t, 0.5, cfg.Providers.ElevenLabs.Stability, 1e-9)
	assert.InDelta(t, 0.7, cfg.Providers.ElevenLabs.SimilarityBoost, 1e-9)
	assert.Equal(t, "friendly", cfg.Dialogue.DefaultMode)
	assert.Equal(t, "local", cfg.Storage.Backend)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("OPENAI_TIMEOUT", "5s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ELEVENLABS_STABILITY", "0.25")
	t.Setenv("APP_ENV", "production")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Providers.OpenAI.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
	assert.InDelta(t, 0.25, cfg.Providers.ElevenLabs.Stability, 1e-9)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "many")
	t.Setenv("CACHE_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestDialectorForUnknownDriver(t *testing.T) {
	cfg := Load()
	cfg.Database.Driver = "oracle"

	_, err := dialectorFor(cfg)
	assert.Error(t, err)
}
