package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/oaustegard/cf-api-gateway/pkg/gateway"
	"github.com/oaustegard/cf-api-gateway/pkg/gateway/config"
	"github.com/oaustegard/cf-api-gateway/pkg/shared/filewatcher"
	"github.com/oaustegard/cf-api-gateway/pkg/shared/logging"
)

const (
	reloadDebounce  = 100 * time.Millisecond
	shutdownTimeout = 30 * time.Second
)

// Config represents the configuration for running the server
type Config struct {
	ConfigPath string
	EnvFile    string // From --env-file; overrides secrets.env_file
	Host       string // From command-line flag
	Port       int    // From command-line flag
	HostSet    bool   // Whether host was explicitly set via flag
	PortSet    bool   // Whether port was explicitly set via flag
	Logger     logging.Logger
	Version    string
}

// ResolvedConfig represents the final listen address
type ResolvedConfig struct {
	Host string
	Port int
}

// Addr returns host:port
func (r ResolvedConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Run starts the gateway and blocks until ctx is cancelled, a signal arrives
// or the listener fails
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewSimpleLogger("main", logging.LevelInfo, true)
	}

	logger.Info("Starting muninn-gateway", "version", cfg.Version)

	configPath := cfg.ConfigPath
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			logger.Warn("Config file not found, using default configuration", "path", configPath)
			configPath = ""
		}
	} else {
		logger.Warn("No config file specified, using default configuration")
	}
	if configPath == "" {
		logger.Warn("Default services in use", "services", strings.Join(gateway.DefaultServiceTable().Names(), ","))
	}

	manager, err := NewGatewayManager(configPath, cfg.EnvFile, logger)
	if err != nil {
		return formatConfigError(err)
	}

	resolved := resolveServerConfig(cfg, manager.Config().Server, logger)

	// Hot reload on config or env file change
	var watcher *filewatcher.Watcher
	if configPath != "" || manager.EnvFile() != "" {
		watcher, err = filewatcher.NewWatcher(reloadDebounce, configPath, manager.EnvFile())
		if err != nil {
			logger.Error("Failed to create file watcher", "error", err)
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		defer func() { _ = watcher.Close() }()

		watcher.AddListener(manager)
		logger.Info("File watcher initialized for hot reload", "config_file", configPath, "env_file", manager.EnvFile())
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	watcherDone := make(chan struct{})
	if watcher != nil {
		go func() {
			defer close(watcherDone)
			if err := watcher.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("File watcher error", "error", err)
			}
		}()
	} else {
		close(watcherDone)
	}

	server := &http.Server{
		Addr:              resolved.Addr(),
		Handler:           manager.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
	}

	logger.Info("Starting server", "addr", server.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		} else {
			errChan <- nil
		}
	}()

	select {
	case <-stop:
		logger.Info("Shutdown signal received, stopping server...")
	case <-ctx.Done():
		logger.Info("Context cancelled, stopping server...")
	case err := <-errChan:
		cancel()
		<-watcherDone
		if err != nil {
			logger.Error("Server stopped with error", "error", err)
		}
		return err
	}

	cancel()

	// Health checks report 503 while connections drain
	manager.SetDraining()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	err = <-errChan
	<-watcherDone
	if err != nil {
		logger.Error("Server stopped with error", "error", err)
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// resolveServerConfig resolves the final host and port.
// Priority: command-line flags > config file > defaults (already applied by the loader)
func resolveServerConfig(cfg Config, fileCfg config.ServerConfig, logger logging.Logger) ResolvedConfig {
	resolved := ResolvedConfig{
		Host: fileCfg.Host,
		Port: fileCfg.Port,
	}

	if cfg.HostSet {
		resolved.Host = cfg.Host
		logger.Info("Using host from command-line flag", "host", resolved.Host)
	} else if resolved.Host == "" {
		resolved.Host = cfg.Host
	}

	if cfg.PortSet {
		resolved.Port = cfg.Port
		logger.Info("Using port from command-line flag", "port", resolved.Port)
	} else if resolved.Port == 0 {
		resolved.Port = cfg.Port
	}

	return resolved
}

// formatConfigError formats configuration errors with helpful messages
func formatConfigError(err error) error {
	var validationErr *config.ValidationError
	if errors.As(err, &validationErr) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Configuration validation failed with %d error(s):\n\n", len(validationErr.Errors))
		for i, e := range validationErr.Errors {
			fmt.Fprintf(&sb, "  %d. %v\n", i+1, e)
		}
		sb.WriteString("\nPlease fix the errors above in your configuration file.")
		return errors.New(sb.String())
	}

	switch {
	case errors.Is(err, config.ErrProxyTokenRequired):
		return fmt.Errorf("%v - the gateway refuses to start without a shared token", err)
	case errors.Is(err, config.ErrEnvFileNotFound):
		return fmt.Errorf("%v - create the file or fix secrets.env_file / --env-file", err)
	case errors.Is(err, config.ErrConfigFileNotFound):
		return fmt.Errorf("configuration file not found: %v - please create a configuration file or specify the correct path with --config flag", err)
	case errors.Is(err, config.ErrUnsupportedFormat):
		return fmt.Errorf("configuration error: %v", err)
	case errors.Is(err, gateway.ErrServiceNameRequired),
		errors.Is(err, gateway.ErrServiceNameInvalid),
		errors.Is(err, gateway.ErrDuplicateService),
		errors.Is(err, gateway.ErrInvalidBaseURL),
		errors.Is(err, gateway.ErrCredentialNameRequired),
		errors.Is(err, gateway.ErrUnknownAuthKind):
		return fmt.Errorf("configuration validation error in services: %v - please check your configuration file and fix the issue above", err)
	}

	return fmt.Errorf("failed to initialize gateway: %v", err)
}
