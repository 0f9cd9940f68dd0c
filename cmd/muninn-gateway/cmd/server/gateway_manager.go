package server

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/oaustegard/cf-api-gateway/pkg/gateway"
	"github.com/oaustegard/cf-api-gateway/pkg/gateway/config"
	"github.com/oaustegard/cf-api-gateway/pkg/shared/filewatcher"
	"github.com/oaustegard/cf-api-gateway/pkg/shared/logging"
)

// GatewayManager owns the live gateway handler and rebuilds it when the
// config file or the env file changes
type GatewayManager struct {
	handler     atomic.Value // Stores *gateway.Handler
	config      atomic.Value // Stores *config.Config
	configPath  string
	envOverride string
	envFile     string
	draining    atomic.Bool
	logger      logging.Logger
}

// NewGatewayManager builds the initial handler. An empty configPath means the
// built-in defaults; a non-empty envOverride replaces secrets.env_file.
func NewGatewayManager(configPath, envOverride string, logger logging.Logger) (*GatewayManager, error) {
	if logger == nil {
		logger = logging.NewSimpleLogger("gateway-manager", logging.LevelInfo, true)
	}

	m := &GatewayManager{
		configPath:  configPath,
		envOverride: envOverride,
		logger:      logger,
	}

	handler, cfg, err := m.build()
	if err != nil {
		return nil, err
	}
	m.store(handler, cfg)
	m.envFile = m.envFileFor(cfg)

	if configPath == "" {
		logger.Info("Gateway manager initialized with default config", "services", handler.Table().Names())
	} else {
		logger.Info("Gateway manager initialized", "config_path", configPath, "services", handler.Table().Names())
	}

	return m, nil
}

func (m *GatewayManager) envFileFor(cfg *config.Config) string {
	if m.envOverride != "" {
		return m.envOverride
	}
	return cfg.Secrets.EnvFile
}

// build loads config and secrets and assembles a new handler
func (m *GatewayManager) build() (*gateway.Handler, *config.Config, error) {
	cfg := config.Default()
	if m.configPath != "" {
		loaded, err := config.NewFileLoader(m.configPath).Load()
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	table, err := cfg.ServiceTable()
	if err != nil {
		return nil, nil, err
	}

	env, err := config.LoadEnvironment(m.envFileFor(cfg))
	if err != nil {
		return nil, nil, err
	}

	secrets, err := config.LoadSecrets(cfg.Secrets, table, env)
	if err != nil {
		return nil, nil, err
	}

	timeout, err := cfg.Upstream.GetTimeout()
	if err != nil {
		return nil, nil, err
	}

	handler, err := gateway.New(table, secrets,
		gateway.WithHTTPClient(&http.Client{Timeout: timeout}),
		gateway.WithLogger(m.logger),
		gateway.WithHealthPath(cfg.Server.HealthPath),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gateway handler: %w", err)
	}

	for _, name := range secrets.MissingCredentials(table) {
		m.logger.Warn("Upstream credential not configured, dependent services will answer 503", "credential_name", name)
	}

	return handler, cfg, nil
}

func (m *GatewayManager) store(handler *gateway.Handler, cfg *config.Config) {
	m.config.Store(cfg)
	m.handler.Store(handler)
	if m.draining.Load() {
		handler.SetDraining()
	}
}

// OnFileChange implements filewatcher.ChangeListener
func (m *GatewayManager) OnFileChange(event filewatcher.ChangeEvent) {
	if event.Error != nil {
		m.logger.Error("File change event error", "error", event.Error)
		return
	}

	m.logger.Info("Change detected, reloading gateway", "path", event.Path)
	m.Reload()
}

// Reload rebuilds the handler; on failure the current handler stays in place
func (m *GatewayManager) Reload() {
	handler, cfg, err := m.build()
	if err != nil {
		m.logger.Error("Failed to reload gateway", "error", err)
		m.logger.Error("Keeping current gateway configuration")
		return
	}

	m.store(handler, cfg)
	m.logger.Info("Gateway reloaded successfully", "services", handler.Table().Names())
}

// Current returns the handler serving new requests
func (m *GatewayManager) Current() *gateway.Handler {
	return m.handler.Load().(*gateway.Handler)
}

// Config returns the configuration of the current handler
func (m *GatewayManager) Config() *config.Config {
	return m.config.Load().(*config.Config)
}

// EnvFile returns the dotenv file in effect at startup, or ""
func (m *GatewayManager) EnvFile() string {
	return m.envFile
}

// SetDraining marks the current and every future handler as draining
func (m *GatewayManager) SetDraining() {
	m.draining.Store(true)
	m.Current().SetDraining()
}

// Handler returns an http.Handler that always dispatches to the latest gateway.
// A request stays on the handler it started with.
func (m *GatewayManager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Current().ServeHTTP(w, r)
	})
}
