// Package commands implements the ddgroups CLI commands.
package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ddgroups/internal/config"
	"github.com/Sumatoshi-tech/ddgroups/internal/observability"
	"github.com/Sumatoshi-tech/ddgroups/pkg/version"
)

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool
	JSONLogs   bool
}

// NewRootCommand builds the ddgroups command tree.
func NewRootCommand() *cobra.Command {
	global := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "ddgroups",
		Short: "Variable-group allocator for decision-diagram encoders",
		Long: `ddgroups replays and validates scripted allocator scenarios.

Commands:
  replay    Run a scenario against a fresh allocator
  validate  Check a scenario against the schema
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&global.ConfigPath, "config", "c", "",
		"config file (default: .ddgroups.yaml in the working or home directory)")
	rootCmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&global.JSONLogs, "json-logs", false, "JSON log output")

	rootCmd.AddCommand(newReplayCommand(global))
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func (g *GlobalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// telemetry translates the loaded config and flags into providers. Logs go
// to logOut.
func (g *GlobalOptions) telemetry(cfg *config.Config, mode observability.AppMode, logOut io.Writer) (observability.Providers, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return observability.Providers{}, fmt.Errorf("log level: %w", err)
	}

	if g.Verbose {
		level = slog.LevelDebug
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SuppressedSpans = cfg.Telemetry.SuppressSpans
	obsCfg.LogLevel = level
	obsCfg.LogJSON = g.JSONLogs || cfg.Logging.JSON

	providers, err := observability.InitWithWriter(obsCfg, logOut)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
