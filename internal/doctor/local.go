package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetd/internal/local"
	"github.com/rileyhilliard/fleetd/internal/probe"
)

// InstrumentationCheck reports which local reader the server would use.
type InstrumentationCheck struct {
	Mode    string
	resolve func(ctx context.Context, mode string) (local.Reader, error)
}

func (c *InstrumentationCheck) Name() string     { return "instrumentation" }
func (c *InstrumentationCheck) Category() string { return CategoryLocal }
func (c *InstrumentationCheck) Fix() error       { return nil }

func (c *InstrumentationCheck) Run(ctx context.Context) CheckResult {
	resolve := c.resolve
	if resolve == nil {
		resolve = func(ctx context.Context, mode string) (local.Reader, error) {
			return local.Resolve(ctx, mode, nil)
		}
	}

	reader, err := resolve(ctx, c.Mode)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    err.Error(),
			Suggestion: "Set probe.instrumentation to auto, host or fallback",
		}
	}
	if local.IsFallback(reader) {
		status := StatusWarn
		if c.Mode == local.ModeFallback {
			status = StatusPass
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     status,
			Message:    "Serving fixed fallback values for local metrics",
			Suggestion: "Live counters are unreadable here; run fleetd on the host itself",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Live local counters readable",
	}
}

// ContainerRuntimeCheck verifies the container CLI answers locally.
type ContainerRuntimeCheck struct {
	Runtime string
	Runner  probe.Runner
	Timeout time.Duration
}

func (c *ContainerRuntimeCheck) Name() string     { return "container_runtime" }
func (c *ContainerRuntimeCheck) Category() string { return CategoryLocal }
func (c *ContainerRuntimeCheck) Fix() error       { return nil }

func (c *ContainerRuntimeCheck) Run(ctx context.Context) CheckResult {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	res := c.Runner.Run(ctx, probe.Local, c.Runtime+" --version", timeout)
	out, err := res.Get()
	if err != nil {
		suggestion := fmt.Sprintf("Install %s or set containers.runtime; local container lists will be empty", c.Runtime)
		if res.Kind == probe.KindTimeout {
			suggestion = fmt.Sprintf("%s did not answer in %s; is the daemon healthy?", c.Runtime, timeout)
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s unavailable: %s", c.Runtime, res.Message()),
			Suggestion: suggestion,
		}
	}

	version := strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: version,
	}
}

// NewLocalChecks creates the local machine checks.
func NewLocalChecks(mode, runtime string, runner probe.Runner) []Check {
	return []Check{
		&InstrumentationCheck{Mode: mode},
		&ContainerRuntimeCheck{Runtime: runtime, Runner: runner},
	}
}
