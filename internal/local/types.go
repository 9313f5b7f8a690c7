// Package local reads instrumentation for the machine fleetd runs on.
package local

import (
	"context"
	"math"
)

// Reader exposes local OS counters. All methods return values already
// rounded for display: percentages to one decimal, sizes in GB to two.
type Reader interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Detail(ctx context.Context) (Detail, error)
	Processes(ctx context.Context) ([]Process, error)
	Temperatures(ctx context.Context) (Temperatures, error)
	DiskActivity(ctx context.Context) (DiskActivity, error)
}

// Snapshot is the headline CPU, memory, and root disk usage in percent.
type Snapshot struct {
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Disk   float64 `json:"disk"`
}

// MemoryDetail sizes are in GB.
type MemoryDetail struct {
	Total     float64 `json:"total"`
	Available float64 `json:"available"`
	Used      float64 `json:"used"`
	Percent   float64 `json:"percent"`
	Cached    float64 `json:"cached"`
	Buffers   float64 `json:"buffers"`
}

// SwapDetail sizes are in GB.
type SwapDetail struct {
	Total   float64 `json:"total"`
	Used    float64 `json:"used"`
	Percent float64 `json:"percent"`
}

// Detail is the extended system view. Uptime holds the boot time as epoch
// seconds, which is what the dashboard expects.
type Detail struct {
	Memory   MemoryDetail `json:"memory"`
	Swap     SwapDetail   `json:"swap"`
	Uptime   int64        `json:"uptime"`
	CPUCount int          `json:"cpu_count"`
	CPUFreq  float64      `json:"cpu_freq"`
}

// Process is one row of the local process table.
type Process struct {
	PID    int32   `json:"pid"`
	Name   string  `json:"name"`
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Status string  `json:"status"`
}

// Sensor is one temperature reading in °C. High and Critical are nil when
// the sensor does not report a threshold.
type Sensor struct {
	Current  float64  `json:"current"`
	High     *float64 `json:"high"`
	Critical *float64 `json:"critical"`
}

// Temperatures maps sensor label to reading.
type Temperatures map[string]Sensor

// DiskIO holds cumulative counters for one block device.
type DiskIO struct {
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
	ReadCount  uint64 `json:"read_count"`
	WriteCount uint64 `json:"write_count"`
	ReadTime   uint64 `json:"read_time"`
	WriteTime  uint64 `json:"write_time"`
}

// Partition is one mounted filesystem; sizes are in GB.
type Partition struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	Fstype     string  `json:"fstype"`
	Total      float64 `json:"total"`
	Used       float64 `json:"used"`
	Free       float64 `json:"free"`
	Percent    float64 `json:"percent"`
}

// DiskActivity combines per-device I/O counters and partition usage.
type DiskActivity struct {
	IOStats    map[string]DiskIO `json:"io_stats"`
	Partitions []Partition       `json:"partitions"`
}

// MaxProcesses caps the local process list.
const MaxProcesses = 20

const bytesPerGB = 1024 * 1024 * 1024

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func pct(v float64) float64 { return round(v, 1) }

func gb(b uint64) float64 { return round(float64(b)/bytesPerGB, 2) }

func ptr(v float64) *float64 { return &v }
