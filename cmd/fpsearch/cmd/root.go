// Package cmd provides the CLI commands for fpsearch.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fpsearch/internal/config"
	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
	"github.com/Aman-CERP/fpsearch/internal/logging"
	"github.com/Aman-CERP/fpsearch/internal/output"
	"github.com/Aman-CERP/fpsearch/pkg/version"
)

// Global flags
var (
	debugMode  bool
	configDir  string
	formatFlag string
)

var loggingCleanup func()

// NewRootCmd creates the root command for the fpsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fpsearch",
		Short: "Audio sub-fingerprint storage and similarity lookup",
		Long: `fpsearch stores hashed audio fingerprints in a full-text search index
and finds stored sub-fingerprints that share at least a threshold number
of hash bins with a query.

The embedded bleve index is used by default. Set backend.type to "solr"
to use an Apache Solr core instead.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("fpsearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.fpsearch/logs/")
	cmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory searched for .fpsearch.yaml")
	cmd.PersistentFlags().StringVar(&formatFlag, "format", string(output.FormatAuto), "Output format: text, json, auto")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newTrackCmd())
	cmd.AddCommand(newInsertCmd())
	cmd.AddCommand(newReadCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging loads .env, then configures slog from --debug or the
// configured level. An invalid configuration is reported later by the
// commands that need it.
func startLogging(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = "warn"
	if cfg, err := config.Load(configDir); err == nil {
		logCfg.Level = cfg.Logging.Level
	}
	if debugMode {
		logCfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)

	if debugMode {
		slog.Info("debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, fperrors.FormatForCLI(err))
	}
	return err
}

// newWriter returns the output writer selected by --format.
func newWriter(cmd *cobra.Command) (*output.Writer, error) {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return nil, fperrors.ValidationError(err.Error(), nil)
	}
	return output.New(cmd.OutOrStdout(), format), nil
}
