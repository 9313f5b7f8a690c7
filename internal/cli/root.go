package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rileyhilliard/fleetd/internal/ui"
	"github.com/spf13/cobra"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	logLevel   string
	noColor    bool
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "fleetd",
		Short: "Status API for this machine and its SSH-reachable hosts",
		Long: `fleetd answers "what is happening right now" on this machine and on a
fixed set of remote hosts reached over SSH. It serves the dashboard API and
offers one-shot status and diagnostic commands.

Examples:
  fleetd serve
  fleetd status
  fleetd doctor --fix`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor || os.Getenv("NO_COLOR") != "" {
				ui.DisableColors()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: ./fleetd.yaml or ~/.config/fleetd/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newServeCmd(opts),
		newStatusCmd(opts),
		newWatchCmd(opts),
		newDoctorCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
		newCompletionCmd(root),
	)

	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err to w. Structured errors already carry their own
// layout.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, err.Error())
}

func newCompletionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion scripts for fleetd.

Examples:
  # Bash
  fleetd completion bash > /etc/bash_completion.d/fleetd

  # Zsh
  fleetd completion zsh > "${fpath[1]}/_fleetd"

  # Fish
  fleetd completion fish > ~/.config/fish/completions/fleetd.fish`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletion(out)
			}
		},
	}
}
