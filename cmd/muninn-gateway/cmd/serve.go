package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/oaustegard/cf-api-gateway/cmd/muninn-gateway/cmd/server"
	"github.com/oaustegard/cf-api-gateway/pkg/gateway/config"
	"github.com/oaustegard/cf-api-gateway/pkg/shared/logging"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long: `Start the gateway with the specified configuration.

The server will:
- Load the configuration file (built-in defaults when it is missing)
- Resolve PROXY_TOKEN and upstream API keys from the environment or env file
- Reload on config or env file changes
- Handle graceful shutdown on SIGTERM/SIGINT`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load config file to get logging settings
	logCfg := config.Default().Logging
	if cfgFile != "" {
		appConfig, err := config.NewFileLoader(cfgFile).Load()
		switch {
		case err == nil:
			logCfg = appConfig.Logging
		case errors.Is(err, config.ErrConfigFileNotFound):
			// server.Run reports the missing file and falls back to defaults
		default:
			return err
		}
	}

	logger, closer, err := logging.NewLoggerWithFile("main", logging.ParseLevel(logCfg.Level), logCfg.Color, logCfg.RotationConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = closer.Close() }()

	cfg := server.Config{
		ConfigPath: cfgFile,
		EnvFile:    envFile,
		Host:       host,
		Port:       port,
		HostSet:    cmd.Flags().Changed("host"),
		PortSet:    cmd.Flags().Changed("port"),
		Logger:     logger,
		Version:    version,
	}

	return server.Run(context.Background(), cfg)
}
