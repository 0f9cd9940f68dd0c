package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	host    string
	port    int
	version = "dev" // Set by build
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "muninn-gateway",
	Short: "Muninn API Gateway - authenticating proxy for AI service APIs",
	Long: `Muninn API Gateway is a reverse proxy in front of the Gemini, OpenAI and
Anthropic APIs.

Clients authenticate with a single shared bearer token. The first path
segment selects the upstream service (/gemini, /openai, /anthropic); the
gateway injects that service's credential and relays the response.`,
	Version: version,
	// Default to serve command when no subcommand is specified
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "gateway.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Dotenv file with PROXY_TOKEN and upstream API keys (overrides secrets.env_file)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "0.0.0.0", "Server host address")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 8787, "Server port number")
}
