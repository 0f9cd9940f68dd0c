package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oaustegard/cf-api-gateway/pkg/gateway"
	sharedconfig "github.com/oaustegard/cf-api-gateway/pkg/shared/config"
	"gopkg.in/yaml.v3"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = 8787
)

// Loader is an interface for loading configuration
type Loader interface {
	Load() (*Config, error)
}

// FileLoader loads configuration from a YAML or JSON file
type FileLoader struct {
	path string
}

// NewFileLoader creates a new FileLoader
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load reads, expands and parses the configuration file, then applies defaults.
// The format follows the extension (.yaml, .yml, .json). ${VAR} and
// ${VAR:-default} references are expanded from the process environment.
// Validation is left to the caller so that all problems can be reported at once.
func (l *FileLoader) Load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, l.path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(sharedconfig.ExpandEnvBytes(data), filepath.Ext(l.path))
	if err != nil {
		return nil, err
	}

	// A relative env file is resolved against the config file's directory
	if cfg.Secrets.EnvFile != "" && !filepath.IsAbs(cfg.Secrets.EnvFile) {
		cfg.Secrets.EnvFile = filepath.Join(filepath.Dir(l.path), cfg.Secrets.EnvFile)
	}

	return cfg, nil
}

// Parse decodes config data in the format named by ext and applies defaults
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config

	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults sets default values for optional fields
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Secrets.ProxyTokenEnv == "" {
		cfg.Secrets.ProxyTokenEnv = gateway.ProxyTokenName
	}
	for i := range cfg.Services {
		kind, err := gateway.ParseAuthKind(cfg.Services[i].Auth)
		if err == nil && kind == gateway.AuthAnthropic && cfg.Services[i].AnthropicVersion == "" {
			cfg.Services[i].AnthropicVersion = gateway.DefaultAnthropicVersion
		}
	}
}
