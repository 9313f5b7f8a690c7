// Package ui renders fleetd's terminal output: host and check tables,
// usage bars and a spinner shown while probes run.
//
// Colors are ANSI codes so output stays legible on any palette; call
// DisableColors for --no-color or when stdout is not a terminal.
package ui
