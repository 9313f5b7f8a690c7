package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/fleetd/internal/config"
	"github.com/rileyhilliard/fleetd/internal/doctor"
	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/rileyhilliard/fleetd/internal/ui"
	"github.com/rileyhilliard/fleetd/pkg/sshutil"
	"github.com/spf13/cobra"
)

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

type doctorOptions struct {
	json bool
	fix  bool
}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	dopts := &doctorOptions{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose config, SSH and host issues",
		Long: `Run diagnostic checks to identify and fix common issues.

Checks:
  - Config file presence and validity
  - SSH keys, agent and ssh_config aliases
  - Local instrumentation and container runtime
  - Reachability of every configured host

Examples:
  fleetd doctor
  fleetd doctor --fix`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dopts.json = wantJSON(dopts.json, cmd.OutOrStdout())
			return runDoctor(cmd, opts, dopts)
		},
	}
	cmd.Flags().BoolVar(&dopts.json, "json", false, "output in JSON format")
	cmd.Flags().BoolVar(&dopts.fix, "fix", false, "attempt automatic fixes where possible")
	return cmd
}

func runDoctor(cmd *cobra.Command, opts *rootOptions, dopts *doctorOptions) error {
	// Load errors are reported by the config checks; the rest run on defaults.
	cfg, _, err := loadConfig(opts)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	log, err := consoleLogger(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	applySSHSettings(cfg, log)
	defer sshutil.CloseAgent()

	checks := collectChecks(opts.configPath, cfg, log)

	ctx := cmd.Context()
	results := doctor.RunAllParallel(ctx, checks)
	if dopts.fix {
		results = doctor.AttemptFixes(ctx, checks, results)
	}

	out := cmd.OutOrStdout()
	if dopts.json {
		return WriteJSONSuccess(out, buildDoctorOutput(checks, results))
	}
	return writeDoctorText(out, checks, results, dopts.fix)
}

// collectChecks gathers every diagnostic check in category order.
// configPath is the --config value; the config checks do their own search.
func collectChecks(configPath string, cfg *config.Config, log logger.Logger) []doctor.Check {
	var checks []doctor.Check
	checks = append(checks, doctor.NewConfigChecks(configPath)...)
	checks = append(checks, doctor.NewSSHChecks(cfg.Hosts)...)
	checks = append(checks, doctor.NewLocalChecks(cfg.Probe.Instrumentation, cfg.Containers.Runtime, newLocalRunner())...)
	if len(cfg.Hosts) > 0 {
		checks = append(checks, doctor.NewHostsChecks(probeHosts(cfg.Hosts), newHealthChecker(cfg, log))...)
	}
	return checks
}

func buildDoctorOutput(checks []doctor.Check, results []doctor.CheckResult) DoctorOutput {
	grouped := make(map[string][]doctor.CheckResult)
	for i, check := range checks {
		grouped[check.Category()] = append(grouped[check.Category()], results[i])
	}

	output := DoctorOutput{Categories: make([]CategoryOutput, 0, len(grouped))}
	for _, cat := range doctor.CategoryOrder {
		if rs, ok := grouped[cat]; ok {
			output.Categories = append(output.Categories, CategoryOutput{Name: cat, Results: rs})
		}
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		Fixable:  doctor.FixableCount(results),
		AllClear: !doctor.HasIssues(results),
	}
	return output
}

func writeDoctorText(w io.Writer, checks []doctor.Check, results []doctor.CheckResult, fixed bool) error {
	rows := make([]ui.DoctorCheckRow, len(checks))
	for i, check := range checks {
		rows[i] = ui.DoctorCheckRow{
			Status:     results[i].Status.String(),
			Category:   check.Category(),
			Message:    results[i].Message,
			Suggestion: results[i].Suggestion,
		}
	}

	successStyle := lipgloss.NewStyle().Foreground(ui.ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ui.ColorError)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)

	fmt.Fprintln(w)
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render("fleetd Diagnostic Report"))
	fmt.Fprintln(w)
	fmt.Fprint(w, ui.RenderDoctorTable(rows))
	fmt.Fprintln(w, strings.Repeat("━", 60))
	fmt.Fprintln(w)

	if !doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", successStyle.Render(ui.SymbolSuccess), doctor.Summary(results))
		return nil
	}

	fmt.Fprintf(w, "%s %s\n", errorStyle.Render(ui.SymbolFail), doctor.Summary(results))
	if doctor.FixableCount(results) > 0 && !fixed {
		fmt.Fprintf(w, "\n  Run with %s to attempt automatic fixes where possible.\n", mutedStyle.Render("--fix"))
	}
	return nil
}
