package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/rileyhilliard/fleetd/internal/probe"
	"github.com/rileyhilliard/fleetd/pkg/sshutil"
	"github.com/stretchr/testify/require"
)

// scriptedRunner answers probes per host alias: hosts in up respond like a
// healthy Linux box, everything else is unreachable.
type scriptedRunner struct {
	up map[string]bool
}

func (r scriptedRunner) Run(_ context.Context, host probe.Host, command string, _ time.Duration) probe.Result[string] {
	if !r.up[host.Alias] {
		return probe.Fail[string](probe.KindUnreachable, stderrors.New("no route to host"))
	}
	switch {
	case strings.HasPrefix(command, "echo connected"):
		return probe.OK("connected\n")
	case strings.HasPrefix(command, "uptime"):
		return probe.OK(" 10:00:00 up 3 days,  2 users,  load average: 0.10, 0.20, 0.30\n" +
			"/dev/sda1        50G   20G   28G  42% /\n" +
			"Mem:           7950        2100        3000\n")
	case strings.HasSuffix(command, "--version"):
		return probe.OK("Docker version 27.0.3, build 7d4bcd8\n")
	default:
		return probe.OK("")
	}
}

// stubRunners swaps the probe constructors for scripted ones.
func stubRunners(t *testing.T, up ...string) {
	t.Helper()
	set := make(map[string]bool, len(up))
	for _, a := range up {
		set[a] = true
	}

	prevRemote, prevLocal := newRemoteRunner, newLocalRunner
	prevStrict, prevWarn := sshutil.StrictHostKeyChecking, sshutil.WarningHandler
	newRemoteRunner = func(time.Duration, logger.Logger) probe.Runner { return scriptedRunner{up: set} }
	newLocalRunner = func() probe.Runner { return scriptedRunner{up: map[string]bool{"local": true}} }
	t.Cleanup(func() {
		newRemoteRunner, newLocalRunner = prevRemote, prevLocal
		sshutil.StrictHostKeyChecking, sshutil.WarningHandler = prevStrict, prevWarn
	})
}

// writeConfig writes a config naming hosts into a temp dir and returns its path.
func writeConfig(t *testing.T, hosts ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("probe:\n  instrumentation: fallback\nhosts:\n")
	for _, h := range hosts {
		b.WriteString("  - alias: " + h + "\n")
	}
	path := filepath.Join(t.TempDir(), "fleetd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
