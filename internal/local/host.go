package local

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/shirou/gopsutil/v4/sensors"
)

// hostReader reads live counters through gopsutil.
type hostReader struct {
	cpuInterval time.Duration
	log         logger.Logger
}

// NewHostReader returns a Reader backed by the live OS counters. CPU usage
// is sampled over one second.
func NewHostReader(log logger.Logger) Reader {
	if log == nil {
		log = logger.Noop()
	}
	return &hostReader{cpuInterval: time.Second, log: log}
}

func unavailable(err error, what string) error {
	return errors.WrapWithCode(err, errors.ErrInstrumentation,
		"Couldn't read "+what,
		"Run with probe.instrumentation: fallback to serve fixed values.")
}

func (r *hostReader) Snapshot(ctx context.Context) (Snapshot, error) {
	cpuPct, err := cpu.PercentWithContext(ctx, r.cpuInterval, false)
	if err != nil || len(cpuPct) == 0 {
		return Snapshot{}, unavailable(err, "CPU usage")
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Snapshot{}, unavailable(err, "memory usage")
	}
	root, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		return Snapshot{}, unavailable(err, "disk usage")
	}

	return Snapshot{
		CPU:    pct(cpuPct[0]),
		Memory: pct(vm.UsedPercent),
		Disk:   pct(root.UsedPercent),
	}, nil
}

func (r *hostReader) Detail(ctx context.Context) (Detail, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Detail{}, unavailable(err, "memory usage")
	}
	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return Detail{}, unavailable(err, "swap usage")
	}
	boot, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return Detail{}, unavailable(err, "boot time")
	}
	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil || count <= 0 {
		return Detail{}, unavailable(err, "CPU count")
	}

	// Frequency is optional; containers and some VMs don't expose it.
	var freq float64
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		freq = math.Round(infos[0].Mhz)
	}

	return Detail{
		Memory: MemoryDetail{
			Total:     gb(vm.Total),
			Available: gb(vm.Available),
			Used:      gb(vm.Total - vm.Available),
			Percent:   pct(vm.UsedPercent),
			Cached:    gb(vm.Cached),
			Buffers:   gb(vm.Buffers),
		},
		Swap: SwapDetail{
			Total:   gb(swap.Total),
			Used:    gb(swap.Used),
			Percent: pct(swap.UsedPercent),
		},
		Uptime:   int64(boot),
		CPUCount: count,
		CPUFreq:  freq,
	}, nil
}

func (r *hostReader) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, unavailable(err, "process table")
	}

	rows := make([]Process, 0, len(procs))
	for _, p := range procs {
		// Processes that exit mid-scan or deny access are skipped.
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cpuPct, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			continue
		}
		memPct, err := p.MemoryPercentWithContext(ctx)
		if err != nil {
			continue
		}
		var rawStatus string
		if status, err := p.StatusWithContext(ctx); err == nil && len(status) > 0 {
			rawStatus = status[0]
		}

		rows = append(rows, Process{
			PID:    p.Pid,
			Name:   name,
			CPU:    pct(cpuPct),
			Memory: pct(float64(memPct)),
			Status: normalizeStatus(rawStatus, cpuPct),
		})
	}

	return topProcesses(rows, MaxProcesses), nil
}

// topProcesses sorts by CPU descending, keeping the scan order for ties,
// and truncates to n.
func topProcesses(rows []Process, n int) []Process {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CPU > rows[j].CPU
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

var normalizedStatuses = map[string]string{
	"running":               "running",
	"sleeping":              "sleeping",
	"idle":                  "idle",
	"stopped":               "stopped",
	"zombie":                "zombie",
	"wait":                  "sleeping",
	"lock":                  "sleeping",
	"sleep":                 "sleeping",
	"disk-sleep":            "sleeping",
	"tracing-stop":          "stopped",
	"dead":                  "zombie",
	"wake-kill":             "sleeping",
	"waking":                "running",
	"parked":                "idle",
	"idle-interrupt":        "idle",
	"suspended":             "stopped",
	"uninterruptible-sleep": "sleeping",
}

// normalizeStatus maps gopsutil's status strings onto a small display set.
// An empty status is inferred from CPU activity.
func normalizeStatus(raw string, cpuPct float64) string {
	if raw != "" {
		key := strings.ToLower(strings.TrimSpace(raw))
		if mapped, ok := normalizedStatuses[key]; ok {
			return mapped
		}
		return key
	}
	if cpuPct > 0 {
		return "running"
	}
	return "idle"
}

func (r *hostReader) Temperatures(ctx context.Context) (Temperatures, error) {
	// gopsutil returns partial readings alongside a warnings error when some
	// hwmon entries fail, so only an empty result counts as failure.
	temps, err := sensors.TemperaturesWithContext(ctx)
	if err != nil && len(temps) == 0 {
		r.log.Debug("temperature sensors unavailable: %v", err)
		return singleSensorFallback(), nil
	}
	return buildTemperatures(temps), nil
}

func buildTemperatures(temps []sensors.TemperatureStat) Temperatures {
	out := make(Temperatures, len(temps))
	for _, t := range temps {
		s := Sensor{Current: pct(t.Temperature)}
		if t.High != 0 {
			s.High = ptr(t.High)
		}
		if t.Critical != 0 {
			s.Critical = ptr(t.Critical)
		}
		out[t.SensorKey] = s
	}
	return out
}

func (r *hostReader) DiskActivity(ctx context.Context) (DiskActivity, error) {
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return DiskActivity{}, unavailable(err, "disk I/O counters")
	}
	ioStats := make(map[string]DiskIO, len(counters))
	for name, c := range counters {
		ioStats[name] = DiskIO{
			ReadBytes:  c.ReadBytes,
			WriteBytes: c.WriteBytes,
			ReadCount:  c.ReadCount,
			WriteCount: c.WriteCount,
			ReadTime:   c.ReadTime,
			WriteTime:  c.WriteTime,
		}
	}

	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return DiskActivity{}, unavailable(err, "partitions")
	}
	partitions := make([]Partition, 0, len(parts))
	for _, p := range parts {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		partitions = append(partitions, Partition{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			Fstype:     p.Fstype,
			Total:      gb(usage.Total),
			Used:       gb(usage.Used),
			Free:       gb(usage.Free),
			Percent:    pct(float64(usage.Used) / float64(usage.Total) * 100),
		})
	}

	return DiskActivity{IOStats: ioStats, Partitions: partitions}, nil
}
