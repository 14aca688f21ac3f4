package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pea/internal/daemon"
	"github.com/Aman-CERP/pea/internal/output"
)

// stopGrace is added to the configured shutdown timeout before SIGKILL.
const stopGrace = 5 * time.Second

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running server",
		Long: `Send SIGTERM to the server recorded in the PID file and wait for it to
exit. A server that does not exit within its shutdown timeout is killed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())

			pf := pidFile(cfg)
			pid, _ := pf.Read()
			err = pf.Stop(cmd.Context(), cfg.ShutdownTimeout()+stopGrace)
			switch {
			case errors.Is(err, daemon.ErrNotRunning):
				out.Warning("Server is not running")
				return nil
			case err != nil:
				return err
			}
			out.Successf("Server stopped (pid %d)", pid)
			return nil
		},
	}
}
