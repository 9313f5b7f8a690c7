package probe

import (
	"context"
	stderrors "errors"
	"net"
	"os"
	"strings"
)

// FailReason is a finer categorization of a transport failure, used for logs
// and the doctor report. Each reason maps onto a Result kind.
type FailReason int

const (
	FailUnknown FailReason = iota
	FailTimeout
	FailRefused
	FailUnreachable
	FailAuth
	FailHostKey
)

// String returns a human-readable description of the failure reason.
func (r FailReason) String() string {
	switch r {
	case FailTimeout:
		return "connection timed out"
	case FailRefused:
		return "connection refused"
	case FailUnreachable:
		return "host unreachable"
	case FailAuth:
		return "authentication failed"
	case FailHostKey:
		return "host key verification failed"
	default:
		return "unknown error"
	}
}

// Kind maps the reason onto a Result kind. Only timeouts stay distinct.
func (r FailReason) Kind() Kind {
	if r == FailTimeout {
		return KindTimeout
	}
	return KindUnreachable
}

// Classify categorizes a dial or exec error. ctx is the probe's own context;
// an expired deadline there always counts as a timeout.
func Classify(ctx context.Context, err error) FailReason {
	if err == nil {
		return FailUnknown
	}
	if ctx != nil && stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return FailTimeout
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, os.ErrDeadlineExceeded) {
		return FailTimeout
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return FailTimeout
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return FailTimeout
	case strings.Contains(errStr, "connection refused"):
		return FailRefused
	case strings.Contains(errStr, "no route to host"),
		strings.Contains(errStr, "network is unreachable"),
		strings.Contains(errStr, "host is down"),
		strings.Contains(errStr, "no such host"):
		return FailUnreachable
	case strings.Contains(errStr, "unable to authenticate"),
		strings.Contains(errStr, "no supported methods"),
		strings.Contains(errStr, "permission denied"),
		strings.Contains(errStr, "no ssh auth methods"),
		strings.Contains(errStr, "encrypted"):
		return FailAuth
	case strings.Contains(errStr, "host key"):
		return FailHostKey
	}
	return FailUnknown
}
