package aggregate

import (
	"context"

	"github.com/rileyhilliard/fleetd/internal/container"
	"github.com/rileyhilliard/fleetd/internal/health"
	"github.com/rileyhilliard/fleetd/internal/probe"
	"github.com/rileyhilliard/fleetd/internal/process"
)

// Containers is the docker-containers response.
type Containers struct {
	Local   []container.Entry            `json:"local"`
	Servers map[string][]container.Entry `json:"servers"`
}

// Connections is the ssh-connections response. Local holds the remote
// hosts' busiest processes in the dashboard's connection-row shape.
type Connections struct {
	Local   []process.ConnectionRow      `json:"local"`
	Servers map[string]health.HostHealth `json:"servers"`
}

// HostReport pairs a host with its health, for ordered listings.
type HostReport struct {
	Alias string
	health.HostHealth
}

// Containers lists local containers and those on every configured host.
// Any failure yields an empty list for that source.
func (a *Aggregator) Containers(ctx context.Context) Containers {
	jobs := make([]job[[]container.Entry], 0, len(a.hosts)+1)
	jobs = append(jobs, job[[]container.Entry]{
		name:     "containers@local",
		timeout:  a.timeouts.LocalContainers,
		fallback: []container.Entry{},
		run: func(ctx context.Context) []container.Entry {
			return a.entriesOrEmpty("local", a.containers.ListLocal(ctx, a.timeouts.LocalContainers))
		},
	})
	for _, h := range a.hosts {
		jobs = append(jobs, job[[]container.Entry]{
			name:     "containers@" + h.Alias,
			timeout:  a.timeouts.RemoteContainers,
			fallback: []container.Entry{},
			run: func(ctx context.Context) []container.Entry {
				return a.entriesOrEmpty(h.Alias, a.containers.ListRemote(ctx, h, a.timeouts.RemoteContainers))
			},
		})
	}

	results := fanOut(ctx, jobs, a.maxParallel, a.timeouts.Grace, a.log)

	resp := Containers{
		Local:   results[0],
		Servers: make(map[string][]container.Entry, len(a.hosts)),
	}
	for i, h := range a.hosts {
		resp.Servers[h.Alias] = results[i+1]
	}
	return resp
}

// entriesOrEmpty collapses a failed listing to an empty list. Callers can't
// tell "no containers" from "probe failed"; the kind is only logged.
func (a *Aggregator) entriesOrEmpty(source string, r probe.Result[[]container.Entry]) []container.Entry {
	if !r.IsOK() {
		a.log.Info("containers on %s unavailable (%s): %s", source, r.Kind, r.Message())
		return []container.Entry{}
	}
	if r.Value == nil {
		return []container.Entry{}
	}
	return r.Value
}

// connSlot carries either a host's process listing or its health.
type connSlot struct {
	procs  []process.RemoteProcess
	health health.HostHealth
}

// Connections checks every configured host and collects its busiest
// processes. Process rows keep configuration order across hosts.
func (a *Aggregator) Connections(ctx context.Context) Connections {
	n := len(a.hosts)
	jobs := make([]job[connSlot], 0, 2*n)
	// Health checks go first so slow process listings can't starve them of
	// pool slots.
	for _, h := range a.hosts {
		jobs = append(jobs, healthJob(a, h, func(hh health.HostHealth) connSlot {
			return connSlot{health: hh}
		}))
	}
	for _, h := range a.hosts {
		jobs = append(jobs, job[connSlot]{
			name:    "processes@" + h.Alias,
			timeout: a.timeouts.Processes,
			run: func(ctx context.Context) connSlot {
				r := process.ListRemote(ctx, a.remote, h, a.timeouts.Processes)
				if !r.IsOK() {
					a.log.Info("processes on %s unavailable (%s): %s", h.Alias, r.Kind, r.Message())
				}
				return connSlot{procs: r.Value}
			},
		})
	}

	results := fanOut(ctx, jobs, a.maxParallel, a.timeouts.Grace, a.log)

	resp := Connections{
		Local:   []process.ConnectionRow{},
		Servers: make(map[string]health.HostHealth, n),
	}
	for i, h := range a.hosts {
		resp.Servers[h.Alias] = results[i].health
		resp.Local = append(resp.Local, process.Rows(results[n+i].procs)...)
	}
	return resp
}

// Health checks every configured host and returns the reports in
// configuration order.
func (a *Aggregator) Health(ctx context.Context) []HostReport {
	jobs := make([]job[health.HostHealth], 0, len(a.hosts))
	for _, h := range a.hosts {
		jobs = append(jobs, healthJob(a, h, func(hh health.HostHealth) health.HostHealth { return hh }))
	}

	results := fanOut(ctx, jobs, a.maxParallel, a.timeouts.Grace, a.log)

	reports := make([]HostReport, len(a.hosts))
	for i, h := range a.hosts {
		reports[i] = HostReport{Alias: h.Alias, HostHealth: results[i]}
	}
	return reports
}

// NotStartedMessage is the error of a host whose check was still queued when
// the request deadline passed.
const NotStartedMessage = "Check not started"

// healthJob builds the fan-out job for one host check. The slot starts as
// offline; a panic or a check that never started turns it into an error
// status.
func healthJob[T any](a *Aggregator, h probe.Host, wrap func(health.HostHealth) T) job[T] {
	return job[T]{
		name:     "health@" + h.Alias,
		timeout:  a.timeouts.Ping + a.timeouts.Info,
		fallback: wrap(health.Offline()),
		recovered: func(msg string) T {
			return wrap(health.Failed(msg))
		},
		unstarted: func() T {
			return wrap(health.Failed(NotStartedMessage))
		},
		run: func(ctx context.Context) T {
			return wrap(a.checker.Check(ctx, h))
		},
	}
}
