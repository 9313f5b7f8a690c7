// Package process lists the busiest processes on remote hosts and renders
// them in the shape the dashboard's connections panel consumes.
package process

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/rileyhilliard/fleetd/internal/probe"
)

// RemoteCommand lists processes by CPU, busiest first, with a header row.
const RemoteCommand = "ps aux --sort=-%cpu | head -10"

// MaxRemoteRows caps the rows taken from each host.
const MaxRemoteRows = 8

// maxCommandWidth is where long command lines are cut on the wire.
const maxCommandWidth = 50

// psFields is the column count of `ps aux`; the last column keeps the full
// command line including its spaces.
const psFields = 11

// RemoteProcess is one row of a remote host's process listing.
type RemoteProcess struct {
	Host    string
	PID     int
	User    string
	CPU     float64
	Memory  float64
	Command string
}

// ConnectionRow is the wire shape of a RemoteProcess. The field names are
// the dashboard's; the values carry process data.
type ConnectionRow struct {
	Protocol      string `json:"protocol"`
	LocalAddress  string `json:"local_address"`
	RemoteAddress string `json:"remote_address"`
	Status        string `json:"status"`
}

// Row renders p for the dashboard.
func (p RemoteProcess) Row() ConnectionRow {
	return ConnectionRow{
		Protocol:      p.Host + " Process",
		LocalAddress:  "CPU: " + strconv.FormatFloat(p.CPU, 'f', 1, 64) + "%",
		RemoteAddress: truncate(p.Command, maxCommandWidth),
		Status:        "MEM: " + strconv.FormatFloat(p.Memory, 'f', 1, 64) + "%",
	}
}

// Rows renders a list of processes, never returning nil.
func Rows(procs []RemoteProcess) []ConnectionRow {
	rows := make([]ConnectionRow, 0, len(procs))
	for _, p := range procs {
		rows = append(rows, p.Row())
	}
	return rows
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width]) + "..."
}

// ParseRemote parses `ps aux` output for host. The header row is discarded
// and at most MaxRemoteRows data rows are considered. Rows with too few
// columns or non-numeric PID, CPU, or memory are dropped; if rows were
// present but none parsed the result is a ParseError.
func ParseRemote(host, output string) probe.Result[[]RemoteProcess] {
	scanner := bufio.NewScanner(strings.NewReader(output))
	// Non-tty ps prints full command lines, which can run past 64KB.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	procs := make([]RemoteProcess, 0, MaxRemoteRows)

	header := true
	considered := 0
	for scanner.Scan() && considered < MaxRemoteRows {
		line := scanner.Text()
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		considered++

		p, ok := parseRow(host, line)
		if ok {
			procs = append(procs, p)
		}
	}

	if err := scanner.Err(); err != nil {
		return probe.ParseFailure[[]RemoteProcess](output, errors.WrapWithCode(err, errors.ErrParse,
			fmt.Sprintf("%s: process listing could not be read", host), ""))
	}
	if considered > 0 && len(procs) == 0 {
		return probe.ParseFailure[[]RemoteProcess](output, errors.New(errors.ErrParse,
			fmt.Sprintf("%s: process listing had %d rows but none could be parsed", host, considered), ""))
	}
	return probe.OK(procs)
}

// parseRow splits a ps aux row into at most psFields columns:
// USER PID %CPU %MEM VSZ RSS TTY STAT START TIME COMMAND...
func parseRow(host, line string) (RemoteProcess, bool) {
	fields := splitN(line, psFields)
	if len(fields) < psFields {
		return RemoteProcess{}, false
	}

	pid, err := strconv.Atoi(fields[1])
	if err != nil {
		return RemoteProcess{}, false
	}
	cpuPct, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return RemoteProcess{}, false
	}
	memPct, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return RemoteProcess{}, false
	}

	return RemoteProcess{
		Host:    host,
		PID:     pid,
		User:    fields[0],
		CPU:     cpuPct,
		Memory:  memPct,
		Command: fields[psFields-1],
	}, true
}

// splitN splits s on runs of whitespace into at most n fields. The last
// field holds the remainder of the line with inner spacing intact.
func splitN(s string, n int) []string {
	var out []string
	rest := strings.TrimLeft(s, " \t")
	for len(out) < n-1 && rest != "" {
		i := strings.IndexAny(rest, " \t")
		if i < 0 {
			break
		}
		out = append(out, rest[:i])
		rest = strings.TrimLeft(rest[i:], " \t")
	}
	rest = strings.TrimRight(rest, " \t\r")
	if rest != "" {
		out = append(out, rest)
	}
	return out
}

// ListRemote runs the process listing on host and parses it.
func ListRemote(ctx context.Context, runner probe.Runner, host probe.Host, timeout time.Duration) probe.Result[[]RemoteProcess] {
	return probe.Then(runner.Run(ctx, host, RemoteCommand, timeout), func(out string) probe.Result[[]RemoteProcess] {
		return ParseRemote(host.Alias, out)
	})
}
