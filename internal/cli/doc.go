// Package cli implements the fleetd command-line interface.
//
// The root command carries the global flags (--config, --log-level,
// --no-color). Subcommands load the config once and build only the pieces
// they need:
//
//	fleetd serve             - HTTP status API and dashboard assets
//	fleetd status            - one-shot health check of every host
//	fleetd doctor            - diagnose config, SSH and host problems
//	fleetd config init|show  - write a sample config or print the effective one
//	fleetd version           - build information
//	fleetd completion        - shell completion scripts
//
// Human output goes through internal/ui. status and doctor switch to JSON
// with --json or when stdout is not a terminal.
package cli
