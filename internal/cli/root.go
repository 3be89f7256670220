package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/currency-api/internal/config"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:          "currency-api",
		Short:        "Banknote recognizer: HTTP service and command line classifier",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", os.Getenv("CURRENCY_CONFIG"), "YAML config file (optional)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")

	cmd.AddCommand(serveCmd(g))
	cmd.AddCommand(classifyCmd(g))
	cmd.AddCommand(labelsCmd(g))
	return cmd
}

// loadConfig layers file, environment and flag values over base, then
// re-validates. A nil base means config.Default().
func (g *globalFlags) loadConfig(base *config.Config, o config.Overrides) (*config.Config, error) {
	if base == nil {
		base = config.Default()
	}
	cfg, err := config.LoadFrom(g.configPath, base)
	if err != nil {
		return nil, err
	}
	if o.LogLevel == "" {
		o.LogLevel = g.logLevel
	}
	cfg.ApplyOverrides(o)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
