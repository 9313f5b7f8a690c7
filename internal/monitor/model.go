// Package monitor is the live terminal view behind `fleetd watch`: it polls
// host health on an interval and redraws the host table in place.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/fleetd/internal/aggregate"
	"github.com/rileyhilliard/fleetd/internal/health"
	"github.com/rileyhilliard/fleetd/internal/ui"
)

// HealthSource is satisfied by *aggregate.Aggregator.
type HealthSource interface {
	Health(ctx context.Context) []aggregate.HostReport
}

// tickMsg triggers a refresh.
type tickMsg time.Time

// healthMsg carries one completed round of checks.
type healthMsg struct {
	reports []aggregate.HostReport
	at      time.Time
}

// Model is the bubbletea model for the watch view.
type Model struct {
	source     HealthSource
	interval   time.Duration
	reports    []aggregate.HostReport
	lastUpdate time.Time
	refreshing bool
	width      int
	quitting   bool
	now        func() time.Time
}

// NewModel creates a model that refreshes every interval.
func NewModel(source HealthSource, interval time.Duration) Model {
	return Model{
		source:   source,
		interval: interval,
		now:      time.Now,
	}
}

// Init starts the first round of checks.
func (m Model) Init() tea.Cmd {
	return m.refreshCmd()
}

// Update handles keys, ticks and finished rounds.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if !m.refreshing {
				m.refreshing = true
				return m, m.refreshCmd()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		if !m.refreshing {
			m.refreshing = true
			return m, m.refreshCmd()
		}

	case healthMsg:
		m.reports = msg.reports
		m.lastUpdate = msg.at
		m.refreshing = false
		return m, m.tickCmd()
	}

	return m, nil
}

// View renders the header, the host table and the key help.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(ui.ColorPrimary).Render("fleetd watch")
	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)

	var b strings.Builder
	b.WriteString(title + "  " + muted.Render(m.summary()) + "\n\n")

	if m.lastUpdate.IsZero() {
		b.WriteString(muted.Render("Checking hosts...") + "\n")
	} else {
		rows := make([]ui.HostRow, len(m.reports))
		for i, r := range m.reports {
			rows[i] = HostRow(r.Alias, r.HostHealth)
		}
		b.WriteString(ui.RenderHostTable(rows))
	}

	b.WriteString("\n" + muted.Render("r refresh  q quit") + "\n")
	if m.width > 0 {
		return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
	}
	return b.String()
}

// OnlineCount returns how many hosts answered in the last round.
func (m Model) OnlineCount() int {
	n := 0
	for _, r := range m.reports {
		if r.Status == health.StatusOnline {
			n++
		}
	}
	return n
}

func (m Model) summary() string {
	if m.lastUpdate.IsZero() {
		return fmt.Sprintf("every %s", m.interval)
	}
	ago := m.now().Sub(m.lastUpdate).Truncate(time.Second)
	s := fmt.Sprintf("%d/%d online, updated %s ago", m.OnlineCount(), len(m.reports), ago)
	if m.refreshing {
		s += ", refreshing"
	}
	return s
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshCmd runs one round of checks. Each probe is bounded by the
// aggregator's own deadlines.
func (m Model) refreshCmd() tea.Cmd {
	source, now := m.source, m.now
	return func() tea.Msg {
		reports := source.Health(context.Background())
		return healthMsg{reports: reports, at: now()}
	}
}

// HostRow converts one host's health into a table row.
func HostRow(alias string, h health.HostHealth) ui.HostRow {
	row := ui.HostRow{Alias: alias, Status: h.Status, Error: h.Error}
	if h.Ping != nil {
		row.Ping = fmt.Sprintf("%.1fms", *h.Ping)
	}
	if h.Info != nil {
		row.Uptime = h.Info.Uptime
	}
	return row
}
