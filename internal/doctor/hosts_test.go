package doctor

import (
	"context"
	"testing"

	"github.com/rileyhilliard/fleetd/internal/health"
	"github.com/rileyhilliard/fleetd/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker map[string]health.HostHealth

func (s stubChecker) Check(_ context.Context, h probe.Host) health.HostHealth {
	return s[h.Alias]
}

func TestHostConnectivityCheck(t *testing.T) {
	ping := 40.0
	checker := stubChecker{
		"got_is_tod": {Status: health.StatusOnline, Ping: &ping, Info: &health.Info{
			Ping: ping, Uptime: "up 3 days", Disk: "/dev/sda1 50G", Memory: "Mem: 7982",
		}},
		"bare":            {Status: health.StatusOnline, Ping: &ping, Info: &health.Info{Ping: ping}},
		"azure-aluminium": health.Offline(),
		"broken":          health.Failed("parse error: garbage"),
	}

	tests := []struct {
		alias   string
		want    CheckStatus
		message string
	}{
		{"got_is_tod", StatusPass, "got_is_tod: online (40.0ms)"},
		{"bare", StatusWarn, "info summary failed"},
		{"azure-aluminium", StatusFail, "azure-aluminium: offline"},
		{"broken", StatusFail, "parse error: garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			check := &HostConnectivityCheck{Host: probe.Host{Alias: tt.alias}, Checker: checker}
			r := check.Run(context.Background())

			assert.Equal(t, "host_"+tt.alias, r.Name)
			assert.Equal(t, tt.want, r.Status)
			assert.Contains(t, r.Message, tt.message)
			assert.Equal(t, checker[tt.alias], check.Health)
		})
	}
}

func TestNewHostsChecks(t *testing.T) {
	hosts := []probe.Host{{Alias: "a"}, {Alias: "b", Target: "me@b.lan"}}
	checks := NewHostsChecks(hosts, stubChecker{"a": health.Offline(), "b": health.Offline()})
	require.Len(t, checks, 2)
	assert.Equal(t, "host_b", checks[1].Name())
	assert.Equal(t, CategoryHosts, checks[1].Category())

	r := checks[1].Run(context.Background())
	assert.Contains(t, r.Suggestion, "ssh me@b.lan")
}
