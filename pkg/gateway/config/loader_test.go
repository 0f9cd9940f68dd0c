package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/oaustegard/cf-api-gateway/pkg/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileLoader_YAML(t *testing.T) {
	t.Setenv("MUNINN_TEST_PORT", "9090")

	path := writeConfig(t, "gateway.yaml", `
server:
  host: "127.0.0.1"
  port: ${MUNINN_TEST_PORT}
  health_path: /_gateway/health
logging:
  level: debug
  file:
    path: /var/log/gateway.log
    max_size_mb: 10
secrets:
  env_file: secrets.env
upstream:
  timeout: 10m
services:
  - name: openai
    base_url: ${MUNINN_TEST_UNSET_BASE_URL:-https://api.openai.com}
    auth: bearer
    credential: OPENAI_API_KEY
  - name: claude
    base_url: https://api.anthropic.com
    auth: anthropic
    credential: ANTHROPIC_API_KEY
`)

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/_gateway/health", cfg.Server.HealthPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NotNil(t, cfg.Logging.RotationConfig())
	assert.Equal(t, 10, cfg.Logging.RotationConfig().MaxSizeMB)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "secrets.env"), cfg.Secrets.EnvFile)
	assert.Equal(t, "PROXY_TOKEN", cfg.Secrets.ProxyTokenEnv)
	assert.Equal(t, "https://api.openai.com", cfg.Services[0].BaseURL)
	assert.Equal(t, gateway.DefaultAnthropicVersion, cfg.Services[1].AnthropicVersion)

	table, err := cfg.ServiceTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "claude"}, table.Names())
}

func TestFileLoader_JSON(t *testing.T) {
	path := writeConfig(t, "gateway.json", `{
  "server": {"port": 8080},
  "secrets": {"proxy_token_env": "GATEWAY_TOKEN", "env_file": "/etc/gateway/.env"}
}`)

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "GATEWAY_TOKEN", cfg.Secrets.ProxyTokenEnv)
	assert.Equal(t, "/etc/gateway/.env", cfg.Secrets.EnvFile)
	assert.Nil(t, cfg.Logging.RotationConfig())

	table, err := cfg.ServiceTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini", "openai", "anthropic"}, table.Names())
}

func TestFileLoader_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
		assert.ErrorIs(t, err, ErrConfigFileNotFound)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := NewFileLoader(writeConfig(t, "gateway.toml", "x = 1")).Load()
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := NewFileLoader(writeConfig(t, "gateway.yaml", "server: [unclosed")).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML")
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := NewFileLoader(writeConfig(t, "gateway.json", "{")).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse JSON")
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8787, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "PROXY_TOKEN", cfg.Secrets.ProxyTokenEnv)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 70000
	cfg.Server.HealthPath = "health"
	cfg.Upstream.Timeout = "soon"
	cfg.Services = []ServiceConfig{
		{Name: "openai", BaseURL: "https://api.openai.com", Auth: "bearer", Credential: "OPENAI_API_KEY"},
		{Name: "openai", BaseURL: "https://api.openai.com", Auth: "bearer", Credential: "OPENAI_API_KEY"},
		{Name: "broken", BaseURL: "https://x.example/v1", Auth: "bearer", Credential: "X_KEY"},
		{Name: "weird", BaseURL: "https://x.example", Auth: "hmac", Credential: "X_KEY"},
	}

	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 6)

	assert.ErrorIs(t, err, ErrInvalidPort)
	assert.ErrorIs(t, err, ErrInvalidHealthPath)
	assert.ErrorIs(t, err, ErrInvalidTimeout)
	assert.ErrorIs(t, err, gateway.ErrDuplicateService)
	assert.ErrorIs(t, err, gateway.ErrInvalidBaseURL)
	assert.ErrorIs(t, err, gateway.ErrUnknownAuthKind)

	assert.Contains(t, err.Error(), "found 6 validation errors")
	assert.Contains(t, err.Error(), "services[1]: duplicate service name: openai")

	_, err = cfg.ServiceTable()
	assert.Error(t, err)
}

func TestUpstreamConfig_GetTimeout(t *testing.T) {
	d, err := UpstreamConfig{}.GetTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = UpstreamConfig{Timeout: "90s"}.GetTimeout()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", d.String())

	_, err = UpstreamConfig{Timeout: "-1s"}.GetTimeout()
	assert.ErrorIs(t, err, ErrInvalidTimeout)
}

func TestValidationError(t *testing.T) {
	verr := NewValidationError()
	assert.NoError(t, verr.ErrorOrNil())

	verr.Add("server.port", nil)
	assert.False(t, verr.HasErrors())

	verr.Add("server.port", ErrInvalidPort)
	assert.Equal(t, "server.port: port must be between 0 and 65535", verr.Error())
	assert.ErrorIs(t, verr.ErrorOrNil(), ErrInvalidPort)

	var fieldErr *FieldError
	require.True(t, errors.As(verr, &fieldErr))
	assert.Equal(t, "server.port", fieldErr.Field)
}

func TestConfig_ValidateHealthPathConflict(t *testing.T) {
	tests := []struct {
		name       string
		healthPath string
		services   []ServiceConfig
		conflict   bool
	}{
		{name: "built-in service root", healthPath: "/gemini", conflict: true},
		{name: "built-in service subpath", healthPath: "/openai/health", conflict: true},
		{name: "dedicated prefix", healthPath: "/_gateway/health"},
		{name: "case differs", healthPath: "/Gemini"},
		{
			name:       "configured service",
			healthPath: "/mirror/health",
			services: []ServiceConfig{
				{Name: "mirror", BaseURL: "https://api.openai.com", Auth: "bearer", Credential: "OPENAI_API_KEY"},
			},
			conflict: true,
		},
		{
			name:       "built-in name not configured",
			healthPath: "/gemini",
			services: []ServiceConfig{
				{Name: "mirror", BaseURL: "https://api.openai.com", Auth: "bearer", Credential: "OPENAI_API_KEY"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Server.HealthPath = tt.healthPath
			cfg.Services = tt.services

			err := cfg.Validate()
			if tt.conflict {
				assert.ErrorIs(t, err, ErrHealthPathConflict)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParse_AnthropicVersionDefaultIgnoresCase(t *testing.T) {
	cfg, err := Parse([]byte(`
services:
  - name: claude
    base_url: https://api.anthropic.com
    auth: " Anthropic "
    credential: ANTHROPIC_API_KEY
  - name: pinned
    base_url: https://api.anthropic.com
    auth: anthropic
    credential: ANTHROPIC_API_KEY
    anthropic_version: "2024-01-01"
  - name: openai
    base_url: https://api.openai.com
    auth: bearer
    credential: OPENAI_API_KEY
`), ".yaml")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, gateway.DefaultAnthropicVersion, cfg.Services[0].AnthropicVersion)
	assert.Equal(t, "2024-01-01", cfg.Services[1].AnthropicVersion)
	assert.Empty(t, cfg.Services[2].AnthropicVersion)
}
