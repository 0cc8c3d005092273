package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := NewConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":5641", cfg.HTTPAddr)
	assert.Equal(t, ":5642", cfg.GRPCAddr)
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "static", cfg.CatalogSource)
	assert.False(t, cfg.HasDatabase())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("LLM_TIMEOUT", "3s")
	t.Setenv("PG_HOST", "db")
	t.Setenv("CATALOG_SOURCE", "postgres")

	cfg, err := NewConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, 3*time.Second, cfg.LLMTimeout)
	assert.Contains(t, cfg.PostgresDSN(), "host=db port=5432")
}

func TestEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LLM_MODEL=mistral-large-latest\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LLM_MODEL") })

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral-large-latest", cfg.LLMModel)
}

func TestInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"provider":         {"LLM_PROVIDER": "openai"},
		"catalog source":   {"CATALOG_SOURCE": "redis"},
		"postgres no host": {"CATALOG_SOURCE": "postgres", "PG_HOST": ""},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := NewConfig("")
			assert.Error(t, err)
		})
	}
}
