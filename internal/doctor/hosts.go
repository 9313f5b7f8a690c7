package doctor

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/fleetd/internal/health"
	"github.com/rileyhilliard/fleetd/internal/probe"
)

// HostChecker is satisfied by *health.Checker.
type HostChecker interface {
	Check(ctx context.Context, host probe.Host) health.HostHealth
}

// HostConnectivityCheck runs the same health check the API serves.
type HostConnectivityCheck struct {
	Host    probe.Host
	Checker HostChecker
	Health  health.HostHealth // Populated after Run()
}

func (c *HostConnectivityCheck) Name() string     { return "host_" + c.Host.Alias }
func (c *HostConnectivityCheck) Category() string { return CategoryHosts }
func (c *HostConnectivityCheck) Fix() error       { return nil }

func (c *HostConnectivityCheck) Run(ctx context.Context) CheckResult {
	c.Health = c.Checker.Check(ctx, c.Host)

	switch c.Health.Status {
	case health.StatusOnline:
		msg := fmt.Sprintf("%s: online", c.Host.Alias)
		if c.Health.Ping != nil {
			msg = fmt.Sprintf("%s: online (%.1fms)", c.Host.Alias, *c.Health.Ping)
		}
		if c.Health.Info == nil || c.Health.Info.Uptime == "" {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusWarn,
				Message:    msg + ", but the info summary failed",
				Suggestion: "Check that uptime, df and free exist on " + c.Host.Alias,
			}
		}
		return CheckResult{Name: c.Name(), Status: StatusPass, Message: msg}

	case health.StatusOffline:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: offline", c.Host.Alias),
			Suggestion: fmt.Sprintf("Try: ssh %s echo connected", c.Host.DialTarget()),
		}

	default:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s", c.Host.Alias, c.Health.Error),
			Suggestion: "Run with FLEETD_DEBUG=1 for probe details",
		}
	}
}

// NewHostsChecks creates one connectivity check per host.
func NewHostsChecks(hosts []probe.Host, checker HostChecker) []Check {
	checks := make([]Check, 0, len(hosts))
	for _, h := range hosts {
		checks = append(checks, &HostConnectivityCheck{Host: h, Checker: checker})
	}
	return checks
}
