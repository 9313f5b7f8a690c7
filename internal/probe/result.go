// Package probe defines the bounded, fallible command execution used by every
// status source: the Result tagged union, the host handle, and runners for
// SSH and local shell commands.
package probe

import (
	"fmt"

	"github.com/rileyhilliard/fleetd/internal/errors"
)

// Kind identifies which variant of a Result is populated.
type Kind int

const (
	KindOK Kind = iota
	KindTimeout
	KindUnreachable
	KindParseError
	KindUnsupported
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindParseError:
		return "parse error"
	case KindUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// errorCode maps a failure kind onto the structured error codes.
func (k Kind) errorCode() string {
	switch k {
	case KindTimeout:
		return errors.ErrTimeout
	case KindUnreachable:
		return errors.ErrUnreachable
	case KindParseError:
		return errors.ErrParse
	default:
		return errors.ErrExec
	}
}

// MaxRawSnippet bounds the raw output kept on a ParseError result.
const MaxRawSnippet = 256

// Result is the outcome of one probe. Exactly one variant is populated:
// Value only when Kind is KindOK, Raw only for KindParseError, and Err for
// every failure kind.
type Result[T any] struct {
	Kind  Kind
	Value T
	Raw   string
	Err   error
}

// OK wraps a successful value.
func OK[T any](v T) Result[T] {
	return Result[T]{Kind: KindOK, Value: v}
}

// Fail builds a failure result. Passing KindOK is a programming error and is
// reported as KindUnsupported. A nil err gets a generic message for the kind.
func Fail[T any](kind Kind, err error) Result[T] {
	if kind == KindOK {
		kind = KindUnsupported
	}
	if err == nil {
		err = errors.New(kind.errorCode(), "probe failed: "+kind.String(), "")
	}
	return Result[T]{Kind: kind, Err: err}
}

// ParseFailure builds a KindParseError result carrying a bounded snippet of
// the output that could not be parsed.
func ParseFailure[T any](raw string, err error) Result[T] {
	if len(raw) > MaxRawSnippet {
		raw = raw[:MaxRawSnippet]
	}
	if err == nil {
		err = errors.New(errors.ErrParse, "Unexpected command output", "")
	}
	return Result[T]{Kind: KindParseError, Raw: raw, Err: err}
}

// IsOK reports whether the result carries a value.
func (r Result[T]) IsOK() bool {
	return r.Kind == KindOK
}

// Get returns the value and a nil error for OK results, or the zero value
// and the failure error.
func (r Result[T]) Get() (T, error) {
	if r.Kind == KindOK {
		return r.Value, nil
	}
	var zero T
	return zero, r.Err
}

// OrElse returns the value for OK results and fallback otherwise.
func (r Result[T]) OrElse(fallback T) T {
	if r.Kind == KindOK {
		return r.Value
	}
	return fallback
}

// Message returns a one-line description of the failure, or "" for OK.
func (r Result[T]) Message() string {
	if r.Kind == KindOK {
		return ""
	}
	return errors.Message(r.Err)
}

// Then feeds an OK value into f. Failures pass through with their kind,
// error, and raw snippet unchanged.
func Then[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if r.Kind != KindOK {
		return Result[U]{Kind: r.Kind, Raw: r.Raw, Err: r.Err}
	}
	return f(r.Value)
}
