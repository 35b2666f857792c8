package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8001
generator:
  base_url: http://127.0.0.1:11434
  header_timeout_seconds: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Generator.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Generator.HeaderTimeout())
}

func TestLoadAppliesDefaultHeaderTimeout(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8001
generator:
  base_url: http://127.0.0.1:11434
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultHeaderTimeoutSeconds, cfg.Generator.HeaderTimeoutSeconds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "zero port",
			cfg: Config{
				Server:    ServerConfig{Port: 0},
				Generator: GeneratorConfig{BaseURL: "http://localhost:11434"},
			},
		},
		{
			name: "port out of range",
			cfg: Config{
				Server:    ServerConfig{Port: 70000},
				Generator: GeneratorConfig{BaseURL: "http://localhost:11434"},
			},
		},
		{
			name: "missing base url",
			cfg: Config{
				Server: ServerConfig{Port: 8001},
			},
		},
		{
			name: "unsupported scheme",
			cfg: Config{
				Server:    ServerConfig{Port: 8001},
				Generator: GeneratorConfig{BaseURL: "ftp://localhost:11434"},
			},
		},
		{
			name: "negative timeout",
			cfg: Config{
				Server:    ServerConfig{Port: 8001},
				Generator: GeneratorConfig{BaseURL: "http://localhost:11434", HeaderTimeoutSeconds: -1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}
