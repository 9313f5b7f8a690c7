package aggregate

import (
	"context"

	"github.com/rileyhilliard/fleetd/internal/local"
)

// The local endpoints read straight from the instrumentation reader. A read
// that fails at request time is answered from the fallback reader so the
// dashboard keeps rendering; the failure is logged.

var fallback = local.Fallback()

// SystemInfo returns the headline CPU, memory, and disk usage.
func (a *Aggregator) SystemInfo(ctx context.Context) local.Snapshot {
	v, err := a.reader.Snapshot(ctx)
	if err != nil {
		a.log.Warn("system info: %v", err)
		v, _ = fallback.Snapshot(ctx)
	}
	return v
}

// SystemDetails returns memory, swap, boot time, and CPU details.
func (a *Aggregator) SystemDetails(ctx context.Context) local.Detail {
	v, err := a.reader.Detail(ctx)
	if err != nil {
		a.log.Warn("system details: %v", err)
		v, _ = fallback.Detail(ctx)
	}
	return v
}

// Processes returns the busiest local processes.
func (a *Aggregator) Processes(ctx context.Context) []local.Process {
	v, err := a.reader.Processes(ctx)
	if err != nil {
		a.log.Warn("processes: %v", err)
		v, _ = fallback.Processes(ctx)
	}
	if v == nil {
		v = []local.Process{}
	}
	return v
}

// Temperatures returns the local sensor readings.
func (a *Aggregator) Temperatures(ctx context.Context) local.Temperatures {
	v, err := a.reader.Temperatures(ctx)
	if err != nil {
		a.log.Warn("temperatures: %v", err)
		v, _ = fallback.Temperatures(ctx)
	}
	if v == nil {
		v = local.Temperatures{}
	}
	return v
}

// DiskActivity returns per-device I/O counters and partition usage.
func (a *Aggregator) DiskActivity(ctx context.Context) local.DiskActivity {
	v, err := a.reader.DiskActivity(ctx)
	if err != nil {
		a.log.Warn("disk activity: %v", err)
		v, _ = fallback.DiskActivity(ctx)
	}
	if v.IOStats == nil {
		v.IOStats = map[string]local.DiskIO{}
	}
	if v.Partitions == nil {
		v.Partitions = []local.Partition{}
	}
	return v
}
