package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/brewlite/internal/config"
	"github.com/oshokin/brewlite/internal/logger"
	"github.com/oshokin/brewlite/internal/version"
)

var (
	// configPath to the settings YAML file; empty means the XDG default.
	configPath string

	// logLevel overrides the level from the settings file.
	logLevel string

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "brewlite",
		Short: "Install pre-built binaries described by package formulas",
		Long: "brewlite reads a YAML or TOML formula, downloads the artifact for the host " +
			"architecture, verifies its SHA-256 checksum, installs the binary under the " +
			"configured name and prints the formula caveats.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: configureLogging,
	}
)

// Execute runs the brewlite CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to settings file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: debug, info, warn, error (overrides settings)")
}

// configureLogging applies the log level from the flag or, failing that,
// from the settings file. Settings errors are reported by the command itself.
func configureLogging(_ *cobra.Command, _ []string) error {
	level := logLevel
	if level == "" {
		if settings, err := config.Load(configPath); err == nil {
			level = settings.LogLevel
		}
	}

	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	logger.SetLevel(parsed)

	return nil
}
