package probe

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rileyhilliard/fleetd/internal/errors"
)

// exitNotFound is the shell's status for an unknown command.
const exitNotFound = 127

// LocalRunner runs commands on this machine through sh -c with the same
// contract as SSHRunner. The host argument is only used in messages.
type LocalRunner struct {
	// Shell defaults to /bin/sh.
	Shell string
	// WaitDelay bounds how long output pipes are drained after the process
	// is killed.
	WaitDelay time.Duration
}

// NewLocalRunner returns a LocalRunner with default settings.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{Shell: "/bin/sh", WaitDelay: 500 * time.Millisecond}
}

// Run executes command locally. A missing command (status 127 or a shell
// that cannot start) is KindUnsupported; other non-zero exits are
// KindUnreachable; deadline expiry is KindTimeout.
func (r *LocalRunner) Run(ctx context.Context, host Host, command string, timeout time.Duration) Result[string] {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.WaitDelay = r.WaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return Fail[string](KindTimeout, errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
			fmt.Sprintf("%s: %q did not finish within %s", host.Alias, command, timeout), ""))
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			code := exitErr.ExitCode()
			kind := KindUnreachable
			if code == exitNotFound {
				kind = KindUnsupported
			}
			return Fail[string](kind, errors.New(kind.errorCode(),
				fmt.Sprintf("%s: command exited with status %d%s", host.Alias, code, stderrSuffix(stderr.Bytes())), ""))
		}
		return Fail[string](KindUnsupported, errors.WrapWithCode(runErr, errors.ErrExec,
			"Couldn't run the command locally",
			"Make sure the command exists and is executable."))
	}

	return OK(stdout.String())
}
