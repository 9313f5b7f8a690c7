package probe

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/rileyhilliard/fleetd/pkg/sshutil"
	sshtest "github.com/rileyhilliard/fleetd/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockRunner(client *sshtest.MockClient) *SSHRunner {
	return &SSHRunner{
		Dial: func(ctx context.Context, target string, connectTimeout time.Duration) (sshutil.SSHClient, error) {
			return client, nil
		},
		ConnectTimeout: time.Second,
		Log:            logger.Noop(),
	}
}

func TestSSHRunner_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		resp     sshtest.CommandResponse
		wantKind Kind
		wantOut  string
	}{
		{
			name:     "success",
			resp:     sshtest.Output("connected\n"),
			wantKind: KindOK,
			wantOut:  "connected\n",
		},
		{
			name:     "exit zero with empty output",
			resp:     sshtest.Output(""),
			wantKind: KindOK,
			wantOut:  "",
		},
		{
			name:     "non-zero exit",
			resp:     sshtest.CommandResponse{ExitCode: 1, Stderr: []byte("docker: not found")},
			wantKind: KindUnreachable,
		},
		{
			name:     "missing exit status and no output",
			resp:     sshtest.CommandResponse{ExitCode: sshutil.ExitMissing},
			wantKind: KindUnreachable,
		},
		{
			name:     "missing exit status with output",
			resp:     sshtest.CommandResponse{ExitCode: sshutil.ExitMissing, Stdout: []byte("partial")},
			wantKind: KindOK,
			wantOut:  "partial",
		},
		{
			name:     "session error",
			resp:     sshtest.CommandResponse{ExitCode: -1, Error: stderrors.New("session reset")},
			wantKind: KindUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := sshtest.NewMockClient("got_is_tod")
			client.SetCommandResponse("probe", tt.resp)

			r := mockRunner(client).Run(context.Background(), Host{Alias: "got_is_tod"}, "probe", time.Second)

			assert.Equal(t, tt.wantKind, r.Kind, r.Message())
			assert.Equal(t, tt.wantOut, r.Value)
			if tt.wantKind != KindOK {
				assert.Error(t, r.Err)
			}
			assert.True(t, client.Closed(), "connection must be closed after every call")
		})
	}
}

func TestSSHRunner_NonZeroExitMessage(t *testing.T) {
	client := sshtest.NewMockClient("azure-aluminium")
	client.SetCommandResponse("docker ps", sshtest.CommandResponse{ExitCode: 127, Stderr: []byte("sh: docker: not found\n")})

	r := mockRunner(client).Run(context.Background(), Host{Alias: "azure-aluminium"}, "docker ps", time.Second)
	assert.Contains(t, r.Message(), "status 127")
	assert.Contains(t, r.Message(), "docker: not found")
}

func TestSSHRunner_ExecTimeoutIsBounded(t *testing.T) {
	client := sshtest.NewMockClient("slow")
	client.SetCommandResponse("sleep", sshtest.CommandResponse{Delay: 10 * time.Second})

	start := time.Now()
	r := mockRunner(client).Run(context.Background(), Host{Alias: "slow"}, "sleep", 50*time.Millisecond)

	assert.Equal(t, KindTimeout, r.Kind)
	assert.True(t, errors.IsCode(r.Err, errors.ErrTimeout))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSSHRunner_DialFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{"timeout", stderrors.New("dial tcp 10.0.0.9:22: i/o timeout"), KindTimeout},
		{"refused", stderrors.New("dial tcp 10.0.0.9:22: connect: connection refused"), KindUnreachable},
		{"auth", stderrors.New("ssh: unable to authenticate"), KindUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTarget string
			runner := &SSHRunner{
				Dial: func(ctx context.Context, target string, connectTimeout time.Duration) (sshutil.SSHClient, error) {
					gotTarget = target
					return nil, tt.err
				},
				Log: logger.Noop(),
			}

			r := runner.Run(context.Background(), Host{Alias: "azure-aluminium", Target: "me@azure:2222"}, "echo connected", time.Second)
			assert.Equal(t, tt.wantKind, r.Kind)
			assert.Contains(t, r.Message(), "azure-aluminium")
			assert.Equal(t, "me@azure:2222", gotTarget)
		})
	}
}

func TestSSHRunner_DialHonorsDeadline(t *testing.T) {
	var gotConnect time.Duration
	runner := &SSHRunner{
		Dial: func(ctx context.Context, target string, connectTimeout time.Duration) (sshutil.SSHClient, error) {
			gotConnect = connectTimeout
			<-ctx.Done()
			return nil, ctx.Err()
		},
		ConnectTimeout: 5 * time.Second,
		Log:            logger.Noop(),
	}

	start := time.Now()
	r := runner.Run(context.Background(), Host{Alias: "blackhole"}, "echo connected", 40*time.Millisecond)

	assert.Equal(t, KindTimeout, r.Kind)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 40*time.Millisecond, gotConnect, "connect timeout is capped by the overall timeout")
}

func TestNewSSHRunner(t *testing.T) {
	r := NewSSHRunner(5*time.Second, nil)
	require.NotNil(t, r.Dial)
	assert.Equal(t, 5*time.Second, r.ConnectTimeout)
	assert.NotNil(t, r.Log)
}
