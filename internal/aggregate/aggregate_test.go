package aggregate

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetd/internal/container"
	"github.com/rileyhilliard/fleetd/internal/health"
	"github.com/rileyhilliard/fleetd/internal/local"
	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/rileyhilliard/fleetd/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	out   probe.Result[string]
	delay time.Duration
	panic bool
}

// fakeRunner answers "<alias> <command>" keys, falling back to "<alias> *".
// Unscripted commands are unreachable.
type fakeRunner struct {
	mu       sync.Mutex
	script   map[string]step
	calls    []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeRunner) Run(ctx context.Context, host probe.Host, command string, timeout time.Duration) probe.Result[string] {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, host.Alias+" "+command)
	s, ok := f.script[host.Alias+" "+command]
	if !ok {
		s, ok = f.script[host.Alias+" *"]
	}
	f.mu.Unlock()

	if !ok {
		return probe.Fail[string](probe.KindUnreachable, stderrors.New("no route to host"))
	}
	if s.panic {
		panic("probe blew up on " + host.Alias)
	}
	if s.delay > 0 {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		select {
		case <-ctx.Done():
			return probe.Fail[string](probe.KindTimeout, ctx.Err())
		case <-time.After(s.delay):
		}
	}
	return s.out
}

type fakeReader struct {
	local.Reader
	err error
}

func (r fakeReader) Snapshot(ctx context.Context) (local.Snapshot, error) {
	if r.err != nil {
		return local.Snapshot{}, r.err
	}
	return local.Snapshot{CPU: 3.5, Memory: 20.1, Disk: 50.0}, nil
}

func (r fakeReader) Processes(ctx context.Context) ([]local.Process, error) {
	if r.err != nil {
		return nil, r.err
	}
	return nil, nil
}

func (r fakeReader) Temperatures(ctx context.Context) (local.Temperatures, error) {
	if r.err != nil {
		return nil, r.err
	}
	return nil, nil
}

func (r fakeReader) Detail(ctx context.Context) (local.Detail, error) {
	if r.err != nil {
		return local.Detail{}, r.err
	}
	return local.Detail{CPUCount: 4}, nil
}

func (r fakeReader) DiskActivity(ctx context.Context) (local.DiskActivity, error) {
	if r.err != nil {
		return local.DiskActivity{}, r.err
	}
	return local.DiskActivity{}, nil
}

var fleet = []probe.Host{{Alias: "got_is_tod"}, {Alias: "azure-aluminium"}}

func fastTimeouts() Timeouts {
	return Timeouts{
		Ping:             time.Second,
		Info:             time.Second,
		Processes:        time.Second,
		LocalContainers:  time.Second,
		RemoteContainers: time.Second,
		Grace:            200 * time.Millisecond,
	}
}

func newTestAggregator(localRunner, remote probe.Runner, hosts []probe.Host, timeouts Timeouts) *Aggregator {
	return New(fakeReader{}, localRunner, remote, Options{
		Hosts:       hosts,
		Runtime:     "docker",
		MaxParallel: 8,
		Timeouts:    timeouts,
	}, logger.Noop())
}

const containerLine = `{"ID":"abc","Names":"web","Image":"nginx","Status":"Up","State":"running","Ports":"","CreatedAt":"now"}`

func TestConnections_OneHostDown(t *testing.T) {
	remote := &fakeRunner{script: map[string]step{
		"got_is_tod " + health.PingCommand: {out: probe.OK("connected\n"), delay: 40 * time.Millisecond},
		"got_is_tod " + health.InfoCommand: {out: probe.OK("up 3 days\n/dev/sda1 50G 20G 28G 42% /\nMem: 7963 2011\n")},
	}}
	a := newTestAggregator(&fakeRunner{}, remote, fleet, fastTimeouts())

	resp := a.Connections(context.Background())

	require.Len(t, resp.Servers, 2)
	online := resp.Servers["got_is_tod"]
	assert.Equal(t, health.StatusOnline, online.Status)
	require.NotNil(t, online.Ping)
	assert.GreaterOrEqual(t, *online.Ping, 40.0)
	assert.Less(t, *online.Ping, 500.0)
	require.NotNil(t, online.Info)
	assert.Equal(t, "up 3 days", online.Info.Uptime)

	data, err := json.Marshal(resp.Servers["azure-aluminium"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"offline","ping":null,"error":"Connection failed"}`, string(data))

	assert.NotNil(t, resp.Local)
	assert.Empty(t, resp.Local)
}

func TestConnections_ProcessRowsFollowHostOrder(t *testing.T) {
	ps := func(cmd string) probe.Result[string] {
		return probe.OK("USER PID %CPU %MEM VSZ RSS TTY STAT START TIME COMMAND\n" +
			"root 1 5.0 1.0 1 1 ? S 10:00 0:00 " + cmd + "\n")
	}
	remote := &fakeRunner{script: map[string]step{
		// The first host answers last.
		"got_is_tod ps aux --sort=-%cpu | head -10":      {out: ps("slow-one"), delay: 80 * time.Millisecond},
		"azure-aluminium ps aux --sort=-%cpu | head -10": {out: ps("fast-one")},
	}}
	a := newTestAggregator(&fakeRunner{}, remote, fleet, fastTimeouts())

	resp := a.Connections(context.Background())

	require.Len(t, resp.Local, 2)
	assert.Equal(t, "got_is_tod Process", resp.Local[0].Protocol)
	assert.Equal(t, "slow-one", resp.Local[0].RemoteAddress)
	assert.Equal(t, "azure-aluminium Process", resp.Local[1].Protocol)
}

func TestConnections_RecoversPanics(t *testing.T) {
	remote := &fakeRunner{script: map[string]step{
		"got_is_tod *": {panic: true},
	}}
	log := logger.NewBufferLogger()
	a := New(fakeReader{}, &fakeRunner{}, remote, Options{Hosts: fleet, Timeouts: fastTimeouts()}, log)

	resp := a.Connections(context.Background())

	// The checker recovers its own panics; the process job falls back.
	assert.Equal(t, health.StatusError, resp.Servers["got_is_tod"].Status)
	assert.Nil(t, resp.Servers["got_is_tod"].Ping)
	assert.Equal(t, health.StatusOffline, resp.Servers["azure-aluminium"].Status)
	assert.Empty(t, resp.Local)
	assert.True(t, log.HasLevel("error"))
}

func TestContainers_AlwaysHasEveryKey(t *testing.T) {
	localRunner := &fakeRunner{script: map[string]step{
		"local *": {out: probe.OK(containerLine + "\n")},
	}}
	remote := &fakeRunner{script: map[string]step{
		"got_is_tod *": {out: probe.OK(containerLine + "\nnot json\n")},
		// azure-aluminium is unscripted and therefore unreachable.
	}}
	a := newTestAggregator(localRunner, remote, fleet, fastTimeouts())

	resp := a.Containers(context.Background())

	require.Len(t, resp.Local, 1)
	assert.Empty(t, resp.Local[0].Server)
	require.Len(t, resp.Servers["got_is_tod"], 1)
	assert.Equal(t, "got_is_tod", resp.Servers["got_is_tod"][0].Server)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "local")
	servers := decoded["servers"].(map[string]any)
	assert.Contains(t, servers, "got_is_tod")
	assert.Equal(t, []any{}, servers["azure-aluminium"])
}

func TestContainers_SlowHostBoundedByTimeoutPlusGrace(t *testing.T) {
	timeouts := Timeouts{
		Ping:             50 * time.Millisecond,
		Info:             50 * time.Millisecond,
		Processes:        50 * time.Millisecond,
		LocalContainers:  50 * time.Millisecond,
		RemoteContainers: 100 * time.Millisecond,
		Grace:            100 * time.Millisecond,
	}
	remote := &fakeRunner{script: map[string]step{
		"got_is_tod *":      {out: probe.OK(containerLine), delay: 10 * time.Second},
		"azure-aluminium *": {out: probe.OK(containerLine), delay: 10 * time.Second},
	}}
	a := newTestAggregator(&fakeRunner{}, remote, fleet, timeouts)

	start := time.Now()
	resp := a.Containers(context.Background())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second, "hosts run concurrently, not one after another")
	assert.Equal(t, []container.Entry{}, resp.Servers["got_is_tod"])
	assert.Equal(t, []container.Entry{}, resp.Servers["azure-aluminium"])
	assert.Equal(t, []container.Entry{}, resp.Local)
}

// A job whose own work ignores cancellation still can't hold the response
// past the overall deadline.
func TestFanOut_DeadlineKeepsFallbacks(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	jobs := []job[string]{
		{name: "fast", timeout: 20 * time.Millisecond, fallback: "fb", run: func(context.Context) string { return "fast" }},
		{name: "stuck", timeout: 20 * time.Millisecond, fallback: "fb", run: func(context.Context) string {
			<-release
			return "late"
		}},
	}

	start := time.Now()
	results := fanOut(context.Background(), jobs, 4, 30*time.Millisecond, logger.Noop())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []string{"fast", "fb"}, results)
}

func TestFanOut_RespectsMaxParallel(t *testing.T) {
	var inFlight, peak atomic.Int32
	jobs := make([]job[int], 12)
	for i := range jobs {
		jobs[i] = job[int]{
			name:    fmt.Sprint(i),
			timeout: time.Second,
			run: func(context.Context) int {
				n := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				return i
			},
		}
	}

	results := fanOut(context.Background(), jobs, 3, time.Second, logger.Noop())

	assert.LessOrEqual(t, peak.Load(), int32(3))
	for i, v := range results {
		assert.Equal(t, i, v, "results stay in job order")
	}
}

func TestFanOut_PanicUsesRecoveredOrFallback(t *testing.T) {
	jobs := []job[string]{
		{name: "a", timeout: time.Second, fallback: "fb", run: func(context.Context) string { panic("x") }},
		{name: "b", timeout: time.Second, fallback: "fb", run: func(context.Context) string { panic("y") },
			recovered: func(msg string) string { return "recovered: " + msg }},
	}

	results := fanOut(context.Background(), jobs, 2, time.Second, logger.Noop())
	assert.Equal(t, []string{"fb", "recovered: y"}, results)
}

func TestFanOut_QueuedJobsReportNotStarted(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	jobs := []job[string]{
		{name: "stuck", timeout: 20 * time.Millisecond, fallback: "fb", run: func(context.Context) string {
			<-release
			return "late"
		}},
		{name: "queued", timeout: 20 * time.Millisecond, fallback: "fb",
			run:       func(context.Context) string { return "ran" },
			unstarted: func() string { return "not started" }},
		{name: "queued-plain", timeout: 20 * time.Millisecond, fallback: "fb",
			run: func(context.Context) string { return "ran" }},
	}

	results := fanOut(context.Background(), jobs, 1, 30*time.Millisecond, logger.Noop())
	assert.Equal(t, []string{"fb", "not started", "fb"}, results)
}

func TestFanOut_Empty(t *testing.T) {
	assert.Empty(t, fanOut[int](context.Background(), nil, 2, time.Second, logger.Noop()))
}

func TestHealth_ConfigurationOrder(t *testing.T) {
	remote := &fakeRunner{script: map[string]step{
		"got_is_tod " + health.PingCommand: {out: probe.OK("connected")},
	}}
	a := newTestAggregator(&fakeRunner{}, remote, fleet, fastTimeouts())

	reports := a.Health(context.Background())
	require.Len(t, reports, 2)
	assert.Equal(t, "got_is_tod", reports[0].Alias)
	assert.Equal(t, health.StatusOnline, reports[0].Status)
	assert.Equal(t, "azure-aluminium", reports[1].Alias)
	assert.Equal(t, health.StatusOffline, reports[1].Status)
}

func TestConnections_SlowProcessListingsDoNotStarveHealth(t *testing.T) {
	hosts := []probe.Host{{Alias: "a"}, {Alias: "b"}, {Alias: "c"}, {Alias: "d"}}
	script := map[string]step{}
	for _, h := range hosts {
		script[h.Alias+" "+health.PingCommand] = step{out: probe.OK("connected")}
		script[h.Alias+" ps aux --sort=-%cpu | head -10"] = step{out: probe.OK(""), delay: 10 * time.Second}
	}
	remote := &fakeRunner{script: script}
	timeouts := Timeouts{
		Ping:             50 * time.Millisecond,
		Info:             50 * time.Millisecond,
		Processes:        200 * time.Millisecond,
		LocalContainers:  50 * time.Millisecond,
		RemoteContainers: 50 * time.Millisecond,
		Grace:            50 * time.Millisecond,
	}
	a := New(fakeReader{}, &fakeRunner{}, remote, Options{
		Hosts:       hosts,
		MaxParallel: 2,
		Timeouts:    timeouts,
	}, logger.Noop())

	resp := a.Connections(context.Background())

	require.Len(t, resp.Servers, 4)
	for _, h := range hosts {
		got := resp.Servers[h.Alias]
		assert.Equal(t, health.StatusOnline, got.Status, h.Alias)
		assert.NotNil(t, got.Ping, h.Alias)
	}
	assert.Empty(t, resp.Local)
}

func TestHealthJob_NotStartedIsAnError(t *testing.T) {
	a := newTestAggregator(&fakeRunner{}, &fakeRunner{}, fleet, fastTimeouts())
	j := healthJob(a, fleet[0], func(hh health.HostHealth) health.HostHealth { return hh })

	require.NotNil(t, j.unstarted)
	got := j.unstarted()
	assert.Equal(t, health.StatusError, got.Status)
	assert.Nil(t, got.Ping)
	assert.Equal(t, NotStartedMessage, got.Error)
}

func TestNoHosts(t *testing.T) {
	a := newTestAggregator(&fakeRunner{}, &fakeRunner{}, nil, fastTimeouts())

	c := a.Containers(context.Background())
	assert.NotNil(t, c.Servers)
	assert.Empty(t, c.Servers)

	conn := a.Connections(context.Background())
	assert.NotNil(t, conn.Local)
	assert.NotNil(t, conn.Servers)
	assert.Empty(t, a.Health(context.Background()))
}

func TestLocalEndpoints(t *testing.T) {
	a := newTestAggregator(&fakeRunner{}, &fakeRunner{}, fleet, fastTimeouts())
	ctx := context.Background()

	assert.Equal(t, local.Snapshot{CPU: 3.5, Memory: 20.1, Disk: 50.0}, a.SystemInfo(ctx))
	assert.Equal(t, 4, a.SystemDetails(ctx).CPUCount)
	assert.NotNil(t, a.Processes(ctx))
	assert.NotNil(t, a.Temperatures(ctx))
	activity := a.DiskActivity(ctx)
	assert.NotNil(t, activity.IOStats)
	assert.NotNil(t, activity.Partitions)
}

func TestLocalEndpoints_FailureServesFallback(t *testing.T) {
	log := logger.NewBufferLogger()
	a := New(fakeReader{err: stderrors.New("permission denied")}, &fakeRunner{}, &fakeRunner{}, Options{Timeouts: fastTimeouts()}, log)
	ctx := context.Background()

	assert.Equal(t, local.Snapshot{CPU: 25.5, Memory: 45.2, Disk: 67.8}, a.SystemInfo(ctx))
	assert.Equal(t, 8, a.SystemDetails(ctx).CPUCount)
	assert.Len(t, a.Processes(ctx), 5)
	assert.Contains(t, a.Temperatures(ctx), "nvme")
	assert.Contains(t, a.DiskActivity(ctx).IOStats, "nvme0n1")
	assert.True(t, log.HasLevel("warn"))
}

func TestDefaultTimeouts(t *testing.T) {
	d := DefaultTimeouts()
	assert.Equal(t, 10*time.Second, d.Ping)
	assert.Equal(t, 8*time.Second, d.Info)
	assert.Equal(t, 15*time.Second, d.RemoteContainers)
}
