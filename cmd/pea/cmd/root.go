// Package cmd provides the CLI commands for pea.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pea/internal/config"
	"github.com/Aman-CERP/pea/internal/logging"
	"github.com/Aman-CERP/pea/pkg/version"
)

// Persistent flags.
var (
	debugMode      bool
	configPath     string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the pea CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pea",
		Short: "Media file index server",
		Long: `pea indexes media trees and serves them over HTTP.

Every file under a content root is indexed with a stable id, its type
(extension) and tags (the directories between the root and the file).
Clients list, query, search, stream and upload files through the HTTP API,
and AI assistants can browse the index over MCP.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("pea version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.pea/logs/")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (overrides .pea.yaml)")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging installs file logging at debug level when --debug is set.
// Commands that own their logging (serve, mcp) configure it themselves.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("Debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig loads the configuration for the working directory and --config.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return config.Load(cwd, configPath)
}

// setupLogging replaces the default logger with one built from cfg, unless
// --debug already installed one.
func setupLogging(cfg logging.Config) (*slog.Logger, error) {
	if loggingCleanup != nil {
		return slog.Default(), nil
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return logger, nil
}
