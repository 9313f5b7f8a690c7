package cli

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/rileyhilliard/fleetd/internal/local"
	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/rileyhilliard/fleetd/internal/monitor"
	"github.com/rileyhilliard/fleetd/pkg/sshutil"
	"github.com/spf13/cobra"
)

// minWatchInterval keeps a slow host from being probed back to back.
const minWatchInterval = time.Second

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of host health",
		Long: `Re-check every configured host on an interval and redraw the table in
place. Press r to refresh now, q to quit.

Examples:
  fleetd watch
  fleetd watch --interval 10s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval < minWatchInterval {
				return errors.New(errors.ErrConfig,
					"Interval too short",
					"Use --interval 1s or longer")
			}
			if !isTerminal(cmd.OutOrStdout()) {
				return errors.New(errors.ErrConfig,
					"watch needs a terminal",
					"Use 'fleetd status --json' for scripted checks")
			}

			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}

			// Log lines would tear the alternate screen.
			log := logger.Noop()
			applySSHSettings(cfg, log)
			defer sshutil.CloseAgent()

			model := monitor.NewModel(newAggregator(cfg, local.Fallback(), log), interval)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "refresh interval")
	return cmd
}
