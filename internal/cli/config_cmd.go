package cli

import (
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/fleetd/internal/config"
	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/rileyhilliard/fleetd/internal/local"
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or inspect the fleetd config",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd(opts))
	return cmd
}

// initAnswers are the values the interactive init asks for.
type initAnswers struct {
	Addr            string
	Hosts           string // comma or space separated aliases
	Runtime         string
	Instrumentation string
}

// promptInit asks for the init answers on the terminal. Replaced in tests.
var promptInit = func(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Description("host:port the status API binds to").
				Value(&a.Addr).
				Validate(validateAddr),
			huh.NewInput().
				Title("Hosts to probe").
				Description("SSH aliases or user@host, separated by commas").
				Value(&a.Hosts),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Container runtime").
				Options(huh.NewOptions("docker", "podman")...).
				Value(&a.Runtime),
			huh.NewSelect[string]().
				Title("Local metrics").
				Options(
					huh.NewOption("Auto-detect", local.ModeAuto),
					huh.NewOption("Always read this machine", local.ModeHost),
					huh.NewOption("Fixed fallback values", local.ModeFallback),
				).
				Value(&a.Instrumentation),
		),
	)
	return form.Run()
}

func validateAddr(s string) error {
	if _, _, err := net.SplitHostPort(s); err != nil {
		return fmt.Errorf("expected host:port")
	}
	return nil
}

// applyInitAnswers layers a onto the defaults.
func applyInitAnswers(a initAnswers) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.Addr = a.Addr
	cfg.Containers.Runtime = a.Runtime
	cfg.Probe.Instrumentation = a.Instrumentation

	cfg.Hosts = []config.Host{}
	for _, field := range strings.FieldsFunc(a.Hosts, func(r rune) bool { return r == ',' || r == ' ' }) {
		host := config.Host{Alias: field}
		// user@host[:port] targets get a plain alias for the responses.
		if at := strings.LastIndex(field, "@"); at >= 0 {
			host = config.Host{Alias: strings.Split(field[at+1:], ":")[0], SSH: field}
		}
		cfg.Hosts = append(cfg.Hosts, host)
	}
	return cfg
}

func newConfigInitCmd() *cobra.Command {
	var (
		force       bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a sample " + config.ConfigFileName,
		Long: `Write the default configuration to ./fleetd.yaml, or to path when given.

Examples:
  fleetd config init
  fleetd config init ~/.config/fleetd/config.yaml
  fleetd config init --force
  fleetd config init --interactive`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigFileName
			if len(args) == 1 {
				path = config.ExpandTilde(args[0])
			}
			cfg := config.DefaultConfig()
			if interactive {
				if !isTerminal(cmd.OutOrStdout()) {
					return errors.New(errors.ErrConfig,
						"--interactive needs a terminal",
						"Drop --interactive to write the defaults, then edit the file")
				}
				answers := initAnswers{
					Addr:            cfg.Server.Addr,
					Hosts:           strings.Join(cfg.Aliases(), ", "),
					Runtime:         cfg.Containers.Runtime,
					Instrumentation: cfg.Probe.Instrumentation,
				}
				if err := promptInit(&answers); err != nil {
					return errors.WrapWithCode(err, errors.ErrConfig,
						"Failed to get user input",
						"Run without --interactive to write the defaults")
				}
				cfg = applyInitAnswers(answers)
			}
			if err := config.Write(path, cfg, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing config")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for the main settings")
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		Long: `Print the configuration fleetd would run with: the config file layered
over defaults, with FLEETD_* environment overrides applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(opts)
			if err != nil {
				return err
			}
			body, err := config.Render(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if path != "" {
				fmt.Fprintf(out, "# source: %s\n", path)
			} else {
				fmt.Fprintln(out, "# source: built-in defaults")
			}
			_, err = out.Write(body)
			return err
		},
	}
}
