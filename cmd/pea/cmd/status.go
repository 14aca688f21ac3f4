package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pea/internal/config"
	"github.com/Aman-CERP/pea/internal/store"
	"github.com/Aman-CERP/pea/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool
	var noColor bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index statistics and server state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			info, err := collectStatus(cfg)
			if err != nil {
				return err
			}

			r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor || !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOutput {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func collectStatus(cfg *config.Config) (ui.StatusInfo, error) {
	info := ui.StatusInfo{IndexPath: cfg.Index.File, Server: "stopped"}

	if st, err := os.Stat(cfg.Index.File); err == nil {
		info.IndexSize = st.Size()
		info.LastWritten = st.ModTime()
	}

	s, err := openStore(cfg, discardLogger(), nil, store.WithoutLock())
	if err != nil {
		return info, err
	}
	stats := s.Stats()
	_ = s.Close()

	info.IndexPath = stats.Path
	info.Files = stats.Files
	info.Tags = stats.Tags
	info.Types = stats.Types
	info.Roots = stats.Roots

	pf := pidFile(cfg)
	if pf.IsRunning() {
		info.Server = "running"
		info.ServerPID, _ = pf.Read()
		return info, nil
	}

	lock := store.NewFileLock(stats.Path)
	if ok, err := lock.TryLock(); err == nil {
		if ok {
			_ = lock.Unlock()
		} else {
			info.Server = "locked"
		}
	}
	return info, nil
}
