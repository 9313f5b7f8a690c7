package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/rileyhilliard/fleetd/pkg/sshutil"
)

// Runner executes exactly one command against one host, bounded by timeout.
// Implementations never retry and never share mutable state between calls,
// so concurrent calls to different hosts are independent.
type Runner interface {
	Run(ctx context.Context, host Host, command string, timeout time.Duration) Result[string]
}

// DialFunc opens an SSH connection to target. connectTimeout bounds the TCP
// connect and handshake; ctx bounds the whole probe.
type DialFunc func(ctx context.Context, target string, connectTimeout time.Duration) (sshutil.SSHClient, error)

// DialSSH is the production DialFunc.
func DialSSH(ctx context.Context, target string, connectTimeout time.Duration) (sshutil.SSHClient, error) {
	client, err := sshutil.DialContext(ctx, target, connectTimeout)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// SSHRunner runs commands on remote hosts. Every call dials its own
// connection and closes it before returning.
type SSHRunner struct {
	Dial           DialFunc
	ConnectTimeout time.Duration
	Log            logger.Logger
}

// NewSSHRunner returns a runner using the real SSH transport.
func NewSSHRunner(connectTimeout time.Duration, log logger.Logger) *SSHRunner {
	if log == nil {
		log = logger.Noop()
	}
	return &SSHRunner{
		Dial:           DialSSH,
		ConnectTimeout: connectTimeout,
		Log:            log,
	}
}

// Run dials host, runs command, and classifies the outcome:
//   - deadline expiry during dial or exec: KindTimeout
//   - any other dial or session failure: KindUnreachable
//   - non-zero exit status: KindUnreachable
//   - no exit status and no output: KindUnreachable
//
// Exit 0 with empty output is OK("").
func (r *SSHRunner) Run(ctx context.Context, host Host, command string, timeout time.Duration) Result[string] {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	connect := r.ConnectTimeout
	if connect <= 0 || connect > timeout {
		connect = timeout
	}

	start := time.Now()
	client, err := r.Dial(ctx, host.DialTarget(), connect)
	if err != nil {
		reason := Classify(ctx, err)
		r.Log.Debug("dial %s failed after %s: %s", host.Alias, time.Since(start).Round(time.Millisecond), reason)
		return Fail[string](reason.Kind(), errors.WrapWithCode(err, reason.Kind().errorCode(),
			fmt.Sprintf("%s: %s", host.Alias, reason), ""))
	}
	defer client.Close()

	stdout, stderr, exitCode, err := client.ExecContext(ctx, command)
	if err != nil {
		reason := Classify(ctx, err)
		if errors.IsCode(err, errors.ErrTimeout) {
			reason = FailTimeout
		}
		r.Log.Debug("exec on %s failed after %s: %s", host.Alias, time.Since(start).Round(time.Millisecond), reason)
		return Fail[string](reason.Kind(), errors.WrapWithCode(err, reason.Kind().errorCode(),
			fmt.Sprintf("%s: command failed: %s", host.Alias, reason), ""))
	}

	switch {
	case exitCode == sshutil.ExitMissing && strings.TrimSpace(string(stdout)) == "":
		return Fail[string](KindUnreachable, errors.New(errors.ErrUnreachable,
			fmt.Sprintf("%s: command ended without an exit status", host.Alias), ""))
	case exitCode != 0 && exitCode != sshutil.ExitMissing:
		return Fail[string](KindUnreachable, errors.New(errors.ErrUnreachable,
			fmt.Sprintf("%s: command exited with status %d%s", host.Alias, exitCode, stderrSuffix(stderr)), ""))
	}

	r.Log.Debug("%s: %q ok in %s", host.Alias, command, time.Since(start).Round(time.Millisecond))
	return OK(string(stdout))
}

// stderrSuffix renders the first line of stderr for error messages.
func stderrSuffix(stderr []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(stderr)), "\n")
	if line == "" {
		return ""
	}
	if len(line) > 120 {
		line = line[:120]
	}
	return ": " + line
}
