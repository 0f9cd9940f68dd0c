// Package config loads the gateway configuration file and resolves secrets.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/oaustegard/cf-api-gateway/pkg/gateway"
	"github.com/oaustegard/cf-api-gateway/pkg/shared/logging"
)

// Config represents the gateway configuration file
type Config struct {
	Server   ServerConfig    `yaml:"server" json:"server"`
	Logging  LoggingConfig   `yaml:"logging" json:"logging"`
	Secrets  SecretsConfig   `yaml:"secrets" json:"secrets"`
	Upstream UpstreamConfig  `yaml:"upstream" json:"upstream"`
	Services []ServiceConfig `yaml:"services" json:"services"` // Empty means the built-in gemini/openai/anthropic table
}

// ServerConfig contains listener settings
type ServerConfig struct {
	Host       string `yaml:"host" json:"host"`
	Port       int    `yaml:"port" json:"port"`
	HealthPath string `yaml:"health_path" json:"health_path"` // Unauthenticated health endpoint, disabled when empty
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string             `yaml:"level" json:"level"`
	Color bool               `yaml:"color" json:"color"`
	File  *FileLoggingConfig `yaml:"file" json:"file"`
}

// FileLoggingConfig contains rotated log file settings
type FileLoggingConfig struct {
	Path       string `yaml:"path" json:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// RotationConfig converts to the logging package's settings; nil when file logging is off
func (l LoggingConfig) RotationConfig() *logging.FileRotationConfig {
	if l.File == nil || l.File.Path == "" {
		return nil
	}
	return &logging.FileRotationConfig{
		Path:       l.File.Path,
		MaxSizeMB:  l.File.MaxSizeMB,
		MaxBackups: l.File.MaxBackups,
		MaxAge:     l.File.MaxAge,
		Compress:   l.File.Compress,
	}
}

// SecretsConfig tells where secrets come from
type SecretsConfig struct {
	EnvFile       string `yaml:"env_file" json:"env_file"`               // Optional dotenv file; process environment wins
	ProxyTokenEnv string `yaml:"proxy_token_env" json:"proxy_token_env"` // Variable holding the shared token (default: PROXY_TOKEN)
}

// UpstreamConfig contains outbound HTTP client settings
type UpstreamConfig struct {
	Timeout string `yaml:"timeout" json:"timeout"` // e.g. "10m"; empty means no client timeout
}

// GetTimeout parses Timeout; zero means no timeout
func (u UpstreamConfig) GetTimeout() (time.Duration, error) {
	if u.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(u.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidTimeout)
	}
	return d, nil
}

// ServiceConfig declares one upstream service
type ServiceConfig struct {
	Name             string `yaml:"name" json:"name"`
	BaseURL          string `yaml:"base_url" json:"base_url"`
	Auth             string `yaml:"auth" json:"auth"`                           // google_api_key, bearer or anthropic
	Credential       string `yaml:"credential" json:"credential"`               // Secret name, e.g. OPENAI_API_KEY
	AnthropicVersion string `yaml:"anthropic_version" json:"anthropic_version"` // anthropic auth only
}

// Descriptor converts the entry into a gateway service descriptor
func (s ServiceConfig) Descriptor() (gateway.ServiceDescriptor, error) {
	kind, err := gateway.ParseAuthKind(s.Auth)
	if err != nil {
		return gateway.ServiceDescriptor{}, err
	}
	d := gateway.ServiceDescriptor{
		Name:             s.Name,
		BaseURL:          s.BaseURL,
		Auth:             kind,
		CredentialName:   s.Credential,
		AnthropicVersion: s.AnthropicVersion,
	}
	return d, d.Validate()
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// ServiceTable builds the routing table: the configured services, or the built-in ones
func (c *Config) ServiceTable() (*gateway.ServiceTable, error) {
	if len(c.Services) == 0 {
		return gateway.DefaultServiceTable(), nil
	}

	descriptors := make([]gateway.ServiceDescriptor, 0, len(c.Services))
	for i, svc := range c.Services {
		d, err := svc.Descriptor()
		if err != nil {
			return nil, fmt.Errorf("services[%d]: %w", i, err)
		}
		descriptors = append(descriptors, d)
	}
	return gateway.NewServiceTable(descriptors...)
}

// healthPathService returns the service whose routes the health path would
// shadow, or "" when there is none
func (c *Config) healthPathService() string {
	if c.Server.HealthPath == "" {
		return ""
	}
	segment, _, _ := strings.Cut(strings.TrimPrefix(c.Server.HealthPath, "/"), "/")
	if segment == "" {
		return ""
	}

	if len(c.Services) == 0 {
		if _, ok := gateway.DefaultServiceTable().Lookup(segment); ok {
			return segment
		}
		return ""
	}
	for _, svc := range c.Services {
		if svc.Name == segment {
			return segment
		}
	}
	return ""
}

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	verr := NewValidationError()

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		verr.Add("server.port", fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port))
	}
	if c.Server.HealthPath != "" && c.Server.HealthPath[0] != '/' {
		verr.Add("server.health_path", ErrInvalidHealthPath)
	} else if name := c.healthPathService(); name != "" {
		verr.Add("server.health_path", fmt.Errorf("%w: %s", ErrHealthPathConflict, name))
	}

	if _, err := c.Upstream.GetTimeout(); err != nil {
		verr.Add("upstream.timeout", err)
	}

	seen := make(map[string]bool, len(c.Services))
	for i, svc := range c.Services {
		field := fmt.Sprintf("services[%d]", i)
		if _, err := svc.Descriptor(); err != nil {
			verr.Add(field, err)
			continue
		}
		if seen[svc.Name] {
			verr.Add(field, fmt.Errorf("%w: %s", gateway.ErrDuplicateService, svc.Name))
		}
		seen[svc.Name] = true
	}

	return verr.ErrorOrNil()
}
