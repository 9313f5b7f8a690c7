package cli

import (
	"context"
	"io"
	"time"

	"github.com/rileyhilliard/fleetd/internal/aggregate"
	"github.com/rileyhilliard/fleetd/internal/config"
	"github.com/rileyhilliard/fleetd/internal/health"
	"github.com/rileyhilliard/fleetd/internal/local"
	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/rileyhilliard/fleetd/internal/probe"
	"github.com/rileyhilliard/fleetd/pkg/sshutil"
)

// Probe constructors, replaced in tests.
var (
	newRemoteRunner = func(connect time.Duration, log logger.Logger) probe.Runner {
		return probe.NewSSHRunner(connect, log)
	}
	newLocalRunner = func() probe.Runner {
		return probe.NewLocalRunner()
	}
	resolveLocal = local.Resolve
)

// loadConfig finds and loads the config named by --config, applying the
// --log-level override.
func loadConfig(opts *rootOptions) (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, path, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, path, nil
}

// consoleLogger builds the logger for one-shot commands. Without
// --log-level only warnings and errors reach stderr.
func consoleLogger(opts *rootOptions, w io.Writer) (logger.Logger, error) {
	level := opts.logLevel
	if level == "" {
		level = "warn"
	}
	return logger.NewWriter(w, level)
}

// applySSHSettings pushes the probe settings into the SSH transport.
func applySSHSettings(cfg *config.Config, log logger.Logger) {
	sshutil.StrictHostKeyChecking = cfg.Probe.StrictHostKeyChecking
	sshutil.WarningHandler = func(message string) {
		log.Warn("%s", message)
	}
}

// probeHosts converts configured hosts to probe targets, keeping order.
func probeHosts(hosts []config.Host) []probe.Host {
	out := make([]probe.Host, len(hosts))
	for i, h := range hosts {
		out[i] = probe.Host{Alias: h.Alias, Target: h.Target()}
	}
	return out
}

// aggregateTimeouts maps the config section onto the aggregator's.
func aggregateTimeouts(t config.TimeoutConfig) aggregate.Timeouts {
	return aggregate.Timeouts{
		Ping:             t.Ping,
		Info:             t.Info,
		Processes:        t.Processes,
		LocalContainers:  t.LocalContainers,
		RemoteContainers: t.RemoteContainers,
		Grace:            t.Grace,
	}
}

// newAggregator wires an Aggregator from cfg around reader.
func newAggregator(cfg *config.Config, reader local.Reader, log logger.Logger) *aggregate.Aggregator {
	return aggregate.New(
		reader,
		newLocalRunner(),
		newRemoteRunner(cfg.Timeouts.Connect, logger.Named(log, "ssh")),
		aggregate.Options{
			Hosts:       probeHosts(cfg.Hosts),
			Runtime:     cfg.Containers.Runtime,
			MaxParallel: cfg.Probe.MaxParallel,
			Timeouts:    aggregateTimeouts(cfg.Timeouts),
		},
		logger.Named(log, "aggregate"),
	)
}

// newHealthChecker builds the checker doctor uses for host checks.
func newHealthChecker(cfg *config.Config, log logger.Logger) *health.Checker {
	return health.NewChecker(
		newRemoteRunner(cfg.Timeouts.Connect, logger.Named(log, "ssh")),
		health.Timeouts{Ping: cfg.Timeouts.Ping, Info: cfg.Timeouts.Info},
		logger.Named(log, "health"),
	)
}

// resolveReader picks the local reader for cfg.
func resolveReader(ctx context.Context, cfg *config.Config, log logger.Logger) (local.Reader, error) {
	return resolveLocal(ctx, cfg.Probe.Instrumentation, logger.Named(log, "local"))
}
