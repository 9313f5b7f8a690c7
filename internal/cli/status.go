package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/fleetd/internal/aggregate"
	"github.com/rileyhilliard/fleetd/internal/health"
	"github.com/rileyhilliard/fleetd/internal/local"
	"github.com/rileyhilliard/fleetd/internal/monitor"
	"github.com/rileyhilliard/fleetd/internal/ui"
	"github.com/rileyhilliard/fleetd/pkg/sshutil"
	"github.com/spf13/cobra"
)

// StatusOutput represents the JSON output for status command.
type StatusOutput struct {
	Hosts  []HostStatus `json:"hosts"`
	Online int          `json:"online"`
	Total  int          `json:"total"`
}

// HostStatus is one host's health keyed by alias.
type HostStatus struct {
	Alias string `json:"alias"`
	health.HostHealth
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check every configured host once",
		Long: `Probe every configured host concurrently and show whether it answers
over SSH, its round trip and a short uptime summary.

Output is JSON with --json or when stdout is not a terminal.

Examples:
  fleetd status
  fleetd status --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts, wantJSON(asJSON, cmd.OutOrStdout()))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func runStatus(cmd *cobra.Command, opts *rootOptions, asJSON bool) error {
	out := cmd.OutOrStdout()

	cfg, _, err := loadConfig(opts)
	if err != nil {
		if asJSON {
			_ = WriteJSONFromError(out, err)
		}
		return err
	}

	log, err := consoleLogger(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	applySSHSettings(cfg, log)
	defer sshutil.CloseAgent()

	// Health only reaches remote hosts, so local counters are never read.
	agg := newAggregator(cfg, local.Fallback(), log)

	var spinner *ui.Spinner
	if !asJSON {
		spinner = ui.NewSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Checking %d host%s", len(cfg.Hosts), plural(len(cfg.Hosts))))
		spinner.Start()
	}

	reports := agg.Health(cmd.Context())
	status := buildStatusOutput(reports)

	if spinner != nil {
		finishSpinner(spinner, status)
	}

	if asJSON {
		return WriteJSONSuccess(out, status)
	}
	return writeStatusText(out, status)
}

// finishSpinner settles the spinner: skipped with no hosts, success when
// every host is online.
func finishSpinner(spinner *ui.Spinner, status StatusOutput) {
	switch {
	case status.Total == 0:
		spinner.Skip()
	case status.Online == status.Total:
		spinner.Success()
	default:
		spinner.Fail()
	}
}

func buildStatusOutput(reports []aggregate.HostReport) StatusOutput {
	status := StatusOutput{
		Hosts: make([]HostStatus, len(reports)),
		Total: len(reports),
	}
	for i, r := range reports {
		status.Hosts[i] = HostStatus{Alias: r.Alias, HostHealth: r.HostHealth}
		if r.Status == health.StatusOnline {
			status.Online++
		}
	}
	return status
}

func writeStatusText(w io.Writer, status StatusOutput) error {
	rows := make([]ui.HostRow, len(status.Hosts))
	for i, h := range status.Hosts {
		rows[i] = monitor.HostRow(h.Alias, h.HostHealth)
	}

	fmt.Fprintln(w)
	fmt.Fprint(w, ui.RenderHostTable(rows))
	fmt.Fprintln(w)
	_, err := fmt.Fprintf(w, "%d of %d host%s online\n", status.Online, status.Total, plural(status.Total))
	return err
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
