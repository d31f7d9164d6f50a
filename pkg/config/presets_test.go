package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults_Fallbacks(t *testing.T) {
	t.Setenv("DEFAULT_API_TYPE", "")
	t.Setenv("DEFAULT_API_VERSION", "")
	t.Setenv("DEFAULT_MODEL", "")
	t.Setenv("DEFAULT_TEMPERATURE", "")
	t.Setenv("DEFAULT_MAX_TOKENS", "")

	defaults := LoadDefaults()

	assert.Equal(t, "azure", defaults.APIType)
	assert.Equal(t, "2024-06-01", defaults.APIVersion)
	assert.Equal(t, "gpt-4o", defaults.Model)
	assert.Equal(t, "0.7", defaults.Temperature)
	assert.Equal(t, "4000", defaults.MaxTokens)
}

func TestLoadPresets_EnvPrefixes(t *testing.T) {
	t.Setenv("GPT_41_MODEL", "gpt-4.1")
	t.Setenv("GPT_41_API_KEY", "k41")
	t.Setenv("O4_MINI_MAX_TOKENS", "16000")

	presets := LoadPresets()

	require.Contains(t, presets, "gpt-4.1")
	assert.Equal(t, "gpt-4.1", presets["gpt-4.1"].Model)
	assert.Equal(t, "k41", presets["gpt-4.1"].APIKey)
	assert.Equal(t, "16000", presets["o4-mini"].MaxTokens)
}

func TestNewResolverFromEnv(t *testing.T) {
	t.Setenv("DEFAULT_API_KEY", "env-key")
	t.Setenv("GPT_4O_TEMPERATURE", "0.1")

	r := NewResolver()
	cfg, err := r.Resolve("gpt-4o", nil)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, 0.1, cfg.Temperature)
}

func TestExpandEnvVarsInData(t *testing.T) {
	t.Setenv("MY_MODEL", "gpt-4o-mini")

	data := map[string]any{
		"model":    "${MY_MODEL}",
		"base_url": "${UNSET_URL:-https://fallback.example.com}",
		"nested":   []any{"$MY_MODEL"},
	}

	out, ok := ExpandEnvVarsInData(data).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "gpt-4o-mini", out["model"])
	assert.Equal(t, "https://fallback.example.com", out["base_url"])
	assert.Equal(t, []any{"gpt-4o-mini"}, out["nested"])
}
