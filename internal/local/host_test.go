package local

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/shirou/gopsutil/v4/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopProcesses(t *testing.T) {
	rows := []Process{
		{PID: 1, Name: "a", CPU: 1.0},
		{PID: 2, Name: "b", CPU: 5.0},
		{PID: 3, Name: "c", CPU: 1.0},
		{PID: 4, Name: "d", CPU: 9.5},
		{PID: 5, Name: "e", CPU: 1.0},
	}

	top := topProcesses(rows, 4)
	require.Len(t, top, 4)

	pids := []int32{top[0].PID, top[1].PID, top[2].PID, top[3].PID}
	assert.Equal(t, []int32{4, 2, 1, 3}, pids, "ties keep scan order")
}

func TestTopProcesses_Cap(t *testing.T) {
	rows := make([]Process, 50)
	for i := range rows {
		rows[i] = Process{PID: int32(i), CPU: float64(i % 7)}
	}

	top := topProcesses(rows, MaxProcesses)
	require.Len(t, top, MaxProcesses)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].CPU, top[i].CPU)
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		cpu  float64
		want string
	}{
		{"running", 0, "running"},
		{"Sleep", 0, "sleeping"},
		{"disk-sleep", 0, "sleeping"},
		{"dead", 0, "zombie"},
		{" parked ", 0, "idle"},
		{"mystery", 0, "mystery"},
		{"", 3.2, "running"},
		{"", 0, "idle"},
	}

	for _, tt := range tests {
		t.Run(tt.raw+"/"+tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeStatus(tt.raw, tt.cpu))
		})
	}
}

func TestBuildTemperatures(t *testing.T) {
	temps := buildTemperatures([]sensors.TemperatureStat{
		{SensorKey: "coretemp_package_id_0", Temperature: 51.26, High: 84, Critical: 100},
		{SensorKey: "nvme_composite", Temperature: 38.04},
	})

	data, err := json.Marshal(temps)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"coretemp_package_id_0": {"current":51.3,"high":84,"critical":100},
		"nvme_composite": {"current":38.0,"high":null,"critical":null}
	}`, string(data))
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 46.9, pct(46.8765))
	assert.Equal(t, 15.99, gb(17_170_000_000))
	assert.Equal(t, 0.0, gb(0))
}

// The live reader is exercised against the machine running the tests.
// Environments without readable counters skip rather than fail.
func liveReader(t *testing.T) *hostReader {
	t.Helper()
	if err := capabilityCheck(context.Background()); err != nil {
		t.Skipf("host counters unavailable: %v", err)
	}
	return &hostReader{cpuInterval: 50 * time.Millisecond, log: logger.Noop()}
}

func TestHostReader_Snapshot(t *testing.T) {
	r := liveReader(t)

	snap, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	for _, v := range []float64{snap.CPU, snap.Memory, snap.Disk} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestHostReader_Detail(t *testing.T) {
	r := liveReader(t)

	detail, err := r.Detail(context.Background())
	require.NoError(t, err)
	assert.Positive(t, detail.CPUCount)
	assert.Positive(t, detail.Memory.Total)
	assert.Positive(t, detail.Uptime)
	assert.InDelta(t, detail.Memory.Total-detail.Memory.Available, detail.Memory.Used, 0.02)
}

func TestHostReader_Processes(t *testing.T) {
	r := liveReader(t)

	procs, err := r.Processes(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(procs), MaxProcesses)
	for i := 1; i < len(procs); i++ {
		assert.GreaterOrEqual(t, procs[i-1].CPU, procs[i].CPU)
	}
}

func TestHostReader_TemperaturesNeverEmptyOnFailure(t *testing.T) {
	r := liveReader(t)

	temps, err := r.Temperatures(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, temps)
}

func TestHostReader_DiskActivity(t *testing.T) {
	r := liveReader(t)

	activity, err := r.DiskActivity(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, activity.IOStats)
	for _, p := range activity.Partitions {
		assert.GreaterOrEqual(t, p.Percent, 0.0)
		assert.LessOrEqual(t, p.Percent, 100.0)
	}
}
