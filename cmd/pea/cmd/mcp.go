package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pea/internal/index"
	"github.com/Aman-CERP/pea/internal/logging"
	"github.com/Aman-CERP/pea/internal/mcp"
	"github.com/Aman-CERP/pea/internal/search"
	"github.com/Aman-CERP/pea/internal/store"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the index to AI assistants over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout.

The server loads a snapshot of the index file and exposes read-only tools
to list, query, search and inspect files. It does not take the index lock,
so it can run next to 'pea serve'. Logs go to the log file only.`,
		Example: `  # Claude Desktop / Claude Code configuration
  {"mcpServers": {"pea": {"command": "pea", "args": ["mcp"]}}}`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// stdout carries JSON-RPC only
			logCfg := logging.StdioConfig(cfg.Logging.Level)
			logCfg.FilePath = cfg.Logging.File
			logger, err := setupLogging(logCfg)
			if err != nil {
				return err
			}

			s, err := openStore(cfg, logger, nil, store.WithoutLock())
			if err != nil {
				return err
			}
			names, err := search.NewNameIndex(logger)
			if err != nil {
				_ = s.Close()
				return err
			}
			actor := index.NewActor(s, index.Config{Names: names, Logger: logger})
			defer func() { _ = actor.Close() }()

			srv, err := mcp.NewServer(index.NewClient(actor, cfg.RequestTimeout()), logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Serve(ctx, "stdio")
		},
	}
}
