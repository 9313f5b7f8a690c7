package testing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	fderrors "github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/rileyhilliard/fleetd/pkg/sshutil"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
	// Delay is how long the command "runs" before responding. A context that
	// ends first produces the same timeout error as the real client.
	Delay time.Duration
}

type cannedResponse struct {
	pattern string
	re      *regexp.Regexp
	resp    CommandResponse
}

// MockClient simulates an SSH connection for testing. Commands are answered
// from registered responses; anything unregistered exits 127.
type MockClient struct {
	mu        sync.Mutex
	host      string
	address   string
	closed    bool
	responses []cannedResponse
	calls     []string
}

var _ sshutil.SSHClient = (*MockClient)(nil)

// NewMockClient creates a new mock SSH client with no registered commands.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:    host,
		address: host + ":22",
	}
}

// ExecContext answers cmd from the registered responses. Exact matches win
// over regex patterns; patterns are tried in registration order.
func (m *MockClient) ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, errors.New("connection closed")
	}
	m.calls = append(m.calls, cmd)
	resp, ok := m.lookup(cmd)
	m.mu.Unlock()

	if !ok {
		return nil, []byte(fmt.Sprintf("sh: %s: command not found\n", cmd)), 127, nil
	}

	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, nil, -1, fderrors.WrapWithCode(ctx.Err(), fderrors.ErrTimeout,
				fmt.Sprintf("Command on '%s' didn't finish in time", m.host), "")
		case <-timer.C:
		}
	}

	return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
}

func (m *MockClient) lookup(cmd string) (CommandResponse, bool) {
	for _, r := range m.responses {
		if r.pattern == cmd {
			return r.resp, true
		}
	}
	for _, r := range m.responses {
		if r.re != nil && r.re.MatchString(cmd) {
			return r.resp, true
		}
	}
	return CommandResponse{}, false
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern. Registering the
// same pattern again replaces the earlier response.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	re, _ := regexp.Compile(pattern)
	for i := range m.responses {
		if m.responses[i].pattern == pattern {
			m.responses[i].resp = resp
			return
		}
	}
	m.responses = append(m.responses, cannedResponse{pattern: pattern, re: re, resp: resp})
}

// Calls returns the commands executed so far, in order.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
