package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/fleetd/internal/aggregate"
	"github.com/rileyhilliard/fleetd/internal/health"
	"github.com/rileyhilliard/fleetd/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls   atomic.Int32
	reports []aggregate.HostReport
}

func (f *fakeSource) Health(context.Context) []aggregate.HostReport {
	f.calls.Add(1)
	return f.reports
}

func sampleReports() []aggregate.HostReport {
	ping := 40.0
	return []aggregate.HostReport{
		{Alias: "got_is_tod", HostHealth: health.HostHealth{
			Status: health.StatusOnline,
			Ping:   &ping,
			Info:   &health.Info{Ping: ping, Uptime: "up 3 days"},
		}},
		{Alias: "azure-aluminium", HostHealth: health.Offline()},
	}
}

func TestModel_InitRunsFirstRound(t *testing.T) {
	src := &fakeSource{reports: sampleReports()}
	m := NewModel(src, 5*time.Second)

	cmd := m.Init()
	require.NotNil(t, cmd)

	msg := cmd()
	hm, ok := msg.(healthMsg)
	require.True(t, ok)
	assert.Len(t, hm.reports, 2)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestModel_HealthMsgUpdatesAndSchedulesTick(t *testing.T) {
	ui.DisableColors()
	src := &fakeSource{reports: sampleReports()}
	m := NewModel(src, time.Second)
	m.refreshing = true

	next, cmd := m.Update(healthMsg{reports: sampleReports(), at: time.Now()})
	require.NotNil(t, cmd)

	model := next.(Model)
	assert.False(t, model.refreshing)
	assert.Equal(t, 1, model.OnlineCount())

	view := model.View()
	assert.Contains(t, view, "1/2 online")
	assert.Contains(t, view, "got_is_tod")
	assert.Contains(t, view, "40.0ms")
	assert.Contains(t, view, "Connection failed")
}

func TestModel_TickSkippedWhileRefreshing(t *testing.T) {
	m := NewModel(&fakeSource{}, time.Second)
	m.refreshing = true

	_, cmd := m.Update(tickMsg(time.Now()))
	assert.Nil(t, cmd)

	m.refreshing = false
	next, cmd := m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.True(t, next.(Model).refreshing)
}

func TestModel_Keys(t *testing.T) {
	m := NewModel(&fakeSource{}, time.Second)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.NotNil(t, cmd)
	assert.True(t, next.(Model).refreshing)

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.(Model).View())
}

func TestModel_ViewBeforeFirstRound(t *testing.T) {
	m := NewModel(&fakeSource{}, 5*time.Second)
	view := m.View()
	assert.Contains(t, view, "Checking hosts")
	assert.Contains(t, view, "every 5s")
}

func TestModel_WindowSize(t *testing.T) {
	m := NewModel(&fakeSource{}, time.Second)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, next.(Model).width)
}

func TestHostRow(t *testing.T) {
	ping := 12.34
	row := HostRow("a", health.HostHealth{Status: health.StatusOnline, Ping: &ping, Info: &health.Info{Uptime: "up"}})
	assert.Equal(t, ui.HostRow{Alias: "a", Status: "online", Ping: "12.3ms", Uptime: "up"}, row)

	row = HostRow("b", health.Failed("boom"))
	assert.Equal(t, ui.HostRow{Alias: "b", Status: "error", Error: "boom"}, row)
}
