package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/dukerupert/pacto/internal/config"
	"github.com/dukerupert/pacto/internal/logging"
)

const programName = "pacto"

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

// commonRun loads the configuration and sets up logging and GOMAXPROCS.
func commonRun() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if globalFlags.debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		logger.Debug(fmt.Sprintf(format, v...), "component", programName)
	})); err != nil {
		return nil, nil, fmt.Errorf("set maxprocs: %w", err)
	}
	return cfg, logger, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Household pact service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	// Subcommands
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(scanCommand())
	rootCmd.AddCommand(vapidKeysCommand())
	rootCmd.AddCommand(tokenCommand())
	rootCmd.AddCommand(versionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", programName, version, commit)
		},
	}
}
