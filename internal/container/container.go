// Package container lists containers known to the local or a remote
// container runtime by parsing `<runtime> ps -a --format json`.
package container

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/rileyhilliard/fleetd/internal/probe"
)

// DefaultRuntime is the container CLI used when none is configured.
const DefaultRuntime = "docker"

// Entry is one container as reported to the dashboard. Server is set only
// for containers on remote hosts.
type Entry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Image   string `json:"image"`
	Status  string `json:"status"`
	State   string `json:"state"`
	Ports   string `json:"ports"`
	Created string `json:"created"`
	Server  string `json:"server,omitempty"`
}

// record is one line of the runtime's JSON output. Names and Ports are
// strings for docker and arrays for podman, so both are decoded lazily.
type record struct {
	ID        string          `json:"ID"`
	Id        string          `json:"Id"`
	Names     json.RawMessage `json:"Names"`
	Image     string          `json:"Image"`
	Status    string          `json:"Status"`
	State     string          `json:"State"`
	Ports     json.RawMessage `json:"Ports"`
	CreatedAt string          `json:"CreatedAt"`
}

// Command returns the listing command for runtime.
func Command(runtime string) string {
	if runtime == "" {
		runtime = DefaultRuntime
	}
	return fmt.Sprintf("%s ps -a --format json", runtime)
}

// Parse decodes line-delimited JSON. Lines that don't decode are skipped;
// if every non-empty line failed the result is a ParseError. server is
// copied onto each entry.
func Parse(output, server string) probe.Result[[]Entry] {
	entries := make([]Entry, 0)
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lines := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines++

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		entries = append(entries, rec.entry(server))
	}

	if lines > 0 && len(entries) == 0 {
		return probe.ParseFailure[[]Entry](output, errors.New(errors.ErrParse,
			fmt.Sprintf("container listing had %d lines but none decoded", lines), ""))
	}
	return probe.OK(entries)
}

func (r record) entry(server string) Entry {
	id := r.ID
	if id == "" {
		id = r.Id
	}
	return Entry{
		ID:      id,
		Name:    flatten(r.Names),
		Image:   r.Image,
		Status:  r.Status,
		State:   r.State,
		Ports:   flatten(r.Ports),
		Created: r.CreatedAt,
		Server:  server,
	}
}

// flatten renders a string or a list of strings as text. Anything else,
// such as podman's structured port objects, renders as "".
func flatten(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ",")
	}
	return ""
}

// Prober lists containers on the local machine or on remote hosts.
type Prober struct {
	Runtime string
	Local   probe.Runner
	Remote  probe.Runner
}

// ListLocal lists containers on this machine.
func (p *Prober) ListLocal(ctx context.Context, timeout time.Duration) probe.Result[[]Entry] {
	return probe.Then(p.Local.Run(ctx, probe.Local, Command(p.Runtime), timeout), func(out string) probe.Result[[]Entry] {
		return Parse(out, "")
	})
}

// ListRemote lists containers on host; entries carry the host alias.
func (p *Prober) ListRemote(ctx context.Context, host probe.Host, timeout time.Duration) probe.Result[[]Entry] {
	return probe.Then(p.Remote.Run(ctx, host, Command(p.Runtime), timeout), func(out string) probe.Result[[]Entry] {
		return Parse(out, host.Alias)
	})
}
