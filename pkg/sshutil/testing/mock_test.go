package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	fderrors "github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_ExactResponse(t *testing.T) {
	m := NewMockClient("got_is_tod")
	m.SetCommandResponse("echo connected", Output("connected\n"))

	stdout, _, code, err := m.ExecContext(context.Background(), "echo connected")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "connected\n", string(stdout))
	assert.Equal(t, []string{"echo connected"}, m.Calls())
}

func TestMockClient_RegexPattern(t *testing.T) {
	m := NewMockClient("host")
	m.SetCommandResponse(`^(docker|podman) ps`, Output("{}\n"))

	stdout, _, _, err := m.ExecContext(context.Background(), "podman ps -a --format json")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(stdout))
}

func TestMockClient_ExactBeatsPattern(t *testing.T) {
	m := NewMockClient("host")
	m.SetCommandResponse(`.*`, Output("pattern"))
	m.SetCommandResponse("uptime", Output("exact"))

	stdout, _, _, err := m.ExecContext(context.Background(), "uptime")
	require.NoError(t, err)
	assert.Equal(t, "exact", string(stdout))
}

func TestMockClient_ReplaceResponse(t *testing.T) {
	m := NewMockClient("host")
	m.SetCommandResponse("uptime", Output("first"))
	m.SetCommandResponse("uptime", Output("second"))

	stdout, _, _, err := m.ExecContext(context.Background(), "uptime")
	require.NoError(t, err)
	assert.Equal(t, "second", string(stdout))
}

func TestMockClient_UnknownCommand(t *testing.T) {
	m := NewMockClient("host")

	_, stderr, code, err := m.ExecContext(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, 127, code)
	assert.Contains(t, string(stderr), "command not found")
}

func TestMockClient_CustomError(t *testing.T) {
	m := NewMockClient("host")
	m.SetCommandResponse("boom", CommandResponse{ExitCode: -1, Error: errors.New("session reset")})

	_, _, code, err := m.ExecContext(context.Background(), "boom")
	assert.EqualError(t, err, "session reset")
	assert.Equal(t, -1, code)
}

func TestMockClient_DelayHonorsContext(t *testing.T) {
	m := NewMockClient("host")
	m.SetCommandResponse("sleep", CommandResponse{Stdout: []byte("late"), Delay: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, _, err := m.ExecContext(ctx, "sleep")
	require.Error(t, err)
	assert.True(t, fderrors.IsCode(err, fderrors.ErrTimeout))
	assert.Less(t, time.Since(start), time.Second)
}

func TestMockClient_DelayCompletes(t *testing.T) {
	m := NewMockClient("host")
	m.SetCommandResponse("sleep", CommandResponse{Stdout: []byte("done"), Delay: 10 * time.Millisecond})

	stdout, _, _, err := m.ExecContext(context.Background(), "sleep")
	require.NoError(t, err)
	assert.Equal(t, "done", string(stdout))
}

func TestMockClient_Close(t *testing.T) {
	m := NewMockClient("host")
	m.SetCommandResponse("uptime", Output("up"))
	require.NoError(t, m.Close())
	assert.True(t, m.Closed())

	_, _, code, err := m.ExecContext(context.Background(), "uptime")
	assert.Error(t, err)
	assert.Equal(t, -1, code)
}

func TestMockClient_GetHostAndAddress(t *testing.T) {
	m := NewMockClient("azure-aluminium")
	assert.Equal(t, "azure-aluminium", m.GetHost())
	assert.Equal(t, "azure-aluminium:22", m.GetAddress())
}

func TestWithOutputs(t *testing.T) {
	m := NewMockClient("host")
	WithOutputs(m, map[string]string{
		"df -h / | tail -1": "/dev/sda1 50G 20G 30G 40% /",
	})

	stdout, _, _, err := m.ExecContext(context.Background(), "df -h / | tail -1")
	require.NoError(t, err)
	assert.Contains(t, string(stdout), "/dev/sda1")

	_, _, code, _ := m.ExecContext(context.Background(), "df -h / | tail -1 | wc")
	assert.Equal(t, 127, code)
}
