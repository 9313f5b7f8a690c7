package cli

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"testing"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorToJSON(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "config not found",
			err:      errors.New(errors.ErrConfig, "Specified config file not found: x.yaml", "Check the path"),
			wantCode: ErrCodeConfigNotFound,
			wantMsg:  "Specified config file not found: x.yaml",
		},
		{
			name:     "config invalid",
			err:      errors.New(errors.ErrConfig, "Invalid config format", ""),
			wantCode: ErrCodeConfigInvalid,
			wantMsg:  "Invalid config format",
		},
		{
			name:     "wrapped cause is kept on one line",
			err:      errors.WrapWithCode(stderrors.New("i/o timeout"), errors.ErrTimeout, "Probe timed out", ""),
			wantCode: ErrCodeTimeout,
			wantMsg:  "Probe timed out: i/o timeout",
		},
		{
			name:     "not found",
			err:      errors.NotFound("Lock tool", ""),
			wantCode: ErrCodeNotFound,
			wantMsg:  "Lock tool not found",
		},
		{
			name:     "plain error",
			err:      stderrors.New("boom"),
			wantCode: ErrCodeUnknown,
			wantMsg:  "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorToJSON(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}

	assert.Nil(t, ErrorToJSON(nil))
}

func TestMapErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeSSHFailed, mapErrorCode(errors.ErrSSH, ""))
	assert.Equal(t, ErrCodeUnreachable, mapErrorCode(errors.ErrUnreachable, ""))
	assert.Equal(t, ErrCodeParse, mapErrorCode(errors.ErrParse, ""))
	assert.Equal(t, ErrCodeInstrumentation, mapErrorCode(errors.ErrInstrumentation, ""))
	assert.Equal(t, ErrCodeCommandFailed, mapErrorCode(errors.ErrExec, ""))
	assert.Equal(t, ErrCodeUnknown, mapErrorCode("OTHER", ""))
}

func TestWriteJSONEnvelopes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, map[string]int{"online": 2}))
	assert.JSONEq(t, `{"success":true,"data":{"online":2}}`, buf.String())

	buf.Reset()
	require.NoError(t, WriteJSONFromError(&buf, errors.New(errors.ErrSSH, "Handshake failed", "Run ssh-add")))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeSSHFailed, env.Error.Code)
	assert.Equal(t, "Run ssh-add", env.Error.Suggestion)
}

func TestWantJSON(t *testing.T) {
	prev := isTerminal
	t.Cleanup(func() { isTerminal = prev })

	isTerminal = func(io.Writer) bool { return true }
	assert.False(t, wantJSON(false, io.Discard))
	assert.True(t, wantJSON(true, io.Discard))

	isTerminal = func(io.Writer) bool { return false }
	assert.True(t, wantJSON(false, io.Discard))
}
