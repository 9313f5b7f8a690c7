package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"strings"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"golang.org/x/term"
)

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound  = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid   = "CONFIG_INVALID"
	ErrCodeSSHFailed       = "SSH_CONNECTION_FAILED"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeUnreachable     = "UNREACHABLE"
	ErrCodeParse           = "PARSE_ERROR"
	ErrCodeInstrumentation = "INSTRUMENTATION_UNAVAILABLE"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeCommandFailed   = "COMMAND_FAILED"
	ErrCodeUnknown         = "UNKNOWN"
)

// isTerminal reports whether w is an interactive terminal. Replaced in tests.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// wantJSON is true when the caller asked for JSON or nobody is watching.
func wantJSON(flag bool, w io.Writer) bool {
	return flag || !isTerminal(w)
}

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: false, Error: ErrorToJSON(err)})
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var fdErr *errors.Error
	if stderrors.As(err, &fdErr) {
		return &JSONError{
			Code:       mapErrorCode(fdErr.Code, fdErr.Message),
			Message:    fdErr.Short(),
			Suggestion: fdErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		// Distinguish between not found and invalid
		if strings.Contains(strings.ToLower(message), "not found") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrSSH:
		return ErrCodeSSHFailed
	case errors.ErrTimeout:
		return ErrCodeTimeout
	case errors.ErrUnreachable:
		return ErrCodeUnreachable
	case errors.ErrParse:
		return ErrCodeParse
	case errors.ErrInstrumentation:
		return ErrCodeInstrumentation
	case errors.ErrNotFound:
		return ErrCodeNotFound
	case errors.ErrExec:
		return ErrCodeCommandFailed
	}
	return ErrCodeUnknown
}
