// Package aggregate fans probes out across the local machine and the
// configured hosts and composes one response per dashboard endpoint.
// Probe failures become fallback values here and never reach the caller.
package aggregate

import (
	"time"

	"github.com/rileyhilliard/fleetd/internal/container"
	"github.com/rileyhilliard/fleetd/internal/health"
	"github.com/rileyhilliard/fleetd/internal/local"
	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/rileyhilliard/fleetd/internal/probe"
)

// Timeouts bounds each kind of probe.
type Timeouts struct {
	Ping             time.Duration
	Info             time.Duration
	Processes        time.Duration
	LocalContainers  time.Duration
	RemoteContainers time.Duration
	// Grace is added to the longest probe timeout to bound a whole request.
	Grace time.Duration
}

// DefaultTimeouts match the stock deployment.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Ping:             10 * time.Second,
		Info:             8 * time.Second,
		Processes:        10 * time.Second,
		LocalContainers:  10 * time.Second,
		RemoteContainers: 15 * time.Second,
		Grace:            2 * time.Second,
	}
}

// Options configures an Aggregator.
type Options struct {
	Hosts       []probe.Host
	Runtime     string
	MaxParallel int
	Timeouts    Timeouts
}

// Aggregator composes endpoint responses. It holds no per-request state and
// is safe for concurrent use.
type Aggregator struct {
	reader      local.Reader
	remote      probe.Runner
	containers  *container.Prober
	checker     *health.Checker
	hosts       []probe.Host
	maxParallel int
	timeouts    Timeouts
	log         logger.Logger
}

// New builds an Aggregator. localRunner runs container listings on this
// machine; remoteRunner reaches the configured hosts.
func New(reader local.Reader, localRunner, remoteRunner probe.Runner, opts Options, log logger.Logger) *Aggregator {
	if log == nil {
		log = logger.Noop()
	}
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 8
	}
	hosts := make([]probe.Host, len(opts.Hosts))
	copy(hosts, opts.Hosts)

	return &Aggregator{
		reader: reader,
		remote: remoteRunner,
		containers: &container.Prober{
			Runtime: opts.Runtime,
			Local:   localRunner,
			Remote:  remoteRunner,
		},
		checker: health.NewChecker(remoteRunner, health.Timeouts{
			Ping: opts.Timeouts.Ping,
			Info: opts.Timeouts.Info,
		}, log),
		hosts:       hosts,
		maxParallel: opts.MaxParallel,
		timeouts:    opts.Timeouts,
		log:         log,
	}
}

// Hosts returns the configured hosts in configuration order.
func (a *Aggregator) Hosts() []probe.Host {
	out := make([]probe.Host, len(a.hosts))
	copy(out, a.hosts)
	return out
}
