package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/oaustegard/cf-api-gateway/pkg/gateway/config"
	"github.com/spf13/cobra"
)

// servicesCmd represents the services command
var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the routable services",
	Long: `List every service the gateway routes to, with its upstream base URL,
auth scheme and credential name, and whether that credential is configured.

Credential values are never printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listServices(cmd.OutOrStdout(), cfgFile, envFile)
	},
}

func init() {
	rootCmd.AddCommand(servicesCmd)
}

func listServices(w io.Writer, path, envOverride string) error {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.NewFileLoader(path).Load()
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, config.ErrConfigFileNotFound):
			fmt.Fprintf(w, "Config file not found (%s), showing built-in services\n\n", path)
		default:
			return err
		}
	}

	table, err := cfg.ServiceTable()
	if err != nil {
		return err
	}

	effectiveEnvFile := cfg.Secrets.EnvFile
	if envOverride != "" {
		effectiveEnvFile = envOverride
	}
	env, err := config.LoadEnvironment(effectiveEnvFile)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tBASE URL\tAUTH\tCREDENTIAL\tCONFIGURED")
	for _, svc := range table.Services() {
		configured := "no"
		if v, ok := env.Lookup(svc.CredentialName); ok && v != "" {
			configured = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", svc.Name, svc.BaseURL, svc.Auth, svc.CredentialName, configured)
	}
	return tw.Flush()
}
