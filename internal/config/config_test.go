package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/garagist")
	t.Setenv("PORT", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENAI_TEMPERATURE", "")
	t.Setenv("OPENAI_MAX_TOKENS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.InDelta(t, 0.7, cfg.OpenAITemperature, 0.001)
	assert.Equal(t, 2048, cfg.OpenAIMaxTokens)
	// missing credential is valid config, not an error
	assert.Empty(t, cfg.OpenAIAPIKey)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/garagist")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")
	t.Setenv("OPENAI_MAX_TOKENS", "512")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.InDelta(t, 0.2, cfg.OpenAITemperature, 0.001)
	assert.Equal(t, 512, cfg.OpenAIMaxTokens)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/garagist")
	t.Setenv("OPENAI_TEMPERATURE", "hot")
	t.Setenv("OPENAI_MAX_TOKENS", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.7, cfg.OpenAITemperature, 0.001)
	assert.Equal(t, 2048, cfg.OpenAIMaxTokens)
}
