// Package health checks whether remote hosts answer over SSH and collects a
// short uptime, disk, and memory summary from the ones that do.
package health

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/rileyhilliard/fleetd/internal/probe"
)

// Status values reported for a host.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusError   = "error"
)

const (
	// PingCommand is the round trip timed for the ping value.
	PingCommand = "echo connected"
	// InfoCommand prints one line each of uptime, root disk, and memory.
	InfoCommand = "uptime; df -h / | tail -1; free -m | grep Mem"

	connectedMarker = "connected"
	// OfflineMessage is the error text for hosts that could not be reached.
	OfflineMessage = "Connection failed"
)

// Info is the free-text summary attached to online hosts.
type Info struct {
	Ping   float64 `json:"ping"`
	Uptime string  `json:"uptime,omitempty"`
	Disk   string  `json:"disk,omitempty"`
	Memory string  `json:"memory,omitempty"`
}

// HostHealth is the health of one host. Ping is nil unless Status is online.
type HostHealth struct {
	Status string   `json:"status"`
	Ping   *float64 `json:"ping"`
	Info   *Info    `json:"info,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Offline is the health reported for unreachable hosts, and the placeholder
// used before a check has finished.
func Offline() HostHealth {
	return HostHealth{Status: StatusOffline, Error: OfflineMessage}
}

// Failed is the health reported when the check itself broke.
func Failed(message string) HostHealth {
	return HostHealth{Status: StatusError, Error: message}
}

// Timeouts bounds the two commands of a check.
type Timeouts struct {
	Ping time.Duration
	Info time.Duration
}

// Checker runs health checks through a probe.Runner.
type Checker struct {
	Runner   probe.Runner
	Timeouts Timeouts
	Log      logger.Logger
	// now is replaced in tests.
	now func() time.Time
}

// NewChecker returns a Checker with the given runner and timeouts.
func NewChecker(runner probe.Runner, timeouts Timeouts, log logger.Logger) *Checker {
	if log == nil {
		log = logger.Noop()
	}
	return &Checker{Runner: runner, Timeouts: timeouts, Log: log, now: time.Now}
}

// Check times PingCommand against host. A host is online when the command
// succeeds and prints the marker; its ping is the wall-clock round trip in
// milliseconds. Online hosts then get one InfoCommand whose failure only
// drops the summary lines.
func (c *Checker) Check(ctx context.Context, host probe.Host) (h HostHealth) {
	defer func() {
		if r := recover(); r != nil {
			c.Log.Error("health check of %s panicked: %v", host.Alias, r)
			h = Failed(fmt.Sprint(r))
		}
	}()

	now := c.now
	if now == nil {
		now = time.Now
	}

	start := now()
	res := c.Runner.Run(ctx, host, PingCommand, c.Timeouts.Ping)
	elapsed := now().Sub(start)

	switch res.Kind {
	case probe.KindOK:
		if !strings.Contains(res.Value, connectedMarker) {
			c.Log.Debug("%s answered without the marker: %q", host.Alias, res.Value)
			return Offline()
		}
	case probe.KindTimeout, probe.KindUnreachable:
		c.Log.Debug("%s offline: %s", host.Alias, res.Message())
		return Offline()
	default:
		c.Log.Warn("%s check failed: %s", host.Alias, res.Message())
		return Failed(res.Message())
	}

	ping := Millis(elapsed)
	info := &Info{Ping: ping}

	summary := c.Runner.Run(ctx, host, InfoCommand, c.Timeouts.Info)
	if summary.IsOK() {
		lines := strings.Split(strings.TrimSpace(summary.Value), "\n")
		if len(lines) >= 3 {
			info.Uptime = strings.TrimSpace(lines[0])
			info.Disk = strings.TrimSpace(lines[1])
			info.Memory = strings.TrimSpace(lines[2])
		}
	} else {
		c.Log.Debug("%s summary unavailable: %s", host.Alias, summary.Message())
	}

	return HostHealth{Status: StatusOnline, Ping: &ping, Info: info}
}

// Millis converts d to milliseconds rounded to one decimal.
func Millis(d time.Duration) float64 {
	return math.Round(float64(d)/float64(time.Millisecond)*10) / 10
}
