package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lmoretti/gamearb/business/detection/domain"
	"github.com/lmoretti/gamearb/business/detection/infra/sink"
)

// refreshInterval paces dashboard refreshes. The detector keeps running in
// the background; the UI only samples its state.
const refreshInterval = time.Second

// ActiveSource exposes the live opportunities the dashboard renders.
type ActiveSource interface {
	ActiveSnapshot() []domain.Opportunity
	ActiveCount() int
}

// StatsSource exposes the session aggregates.
type StatsSource interface {
	Snapshot() sink.Snapshot
}

// TickMsg drives the periodic refresh.
type TickMsg struct{}

// Model is the Bubble Tea model for the detector dashboard.
type Model struct {
	active ActiveSource
	stats  StatsSource
	keys   KeyMap

	table      table.Model
	width      int
	height     int
	ready      bool
	paused     bool
	quitting   bool
	showHelp   bool
	feed       []string
	lastUpdate time.Time
	startedAt  time.Time
}

// New creates a dashboard over the given sources.
func New(active ActiveSource, stats StatsSource) Model {
	columns := []table.Column{
		{Title: "Product", Width: 24},
		{Title: "Buy @", Width: 14},
		{Title: "Sell @", Width: 14},
		{Title: "Profit", Width: 10},
		{Title: "Margin", Width: 8},
		{Title: "Net", Width: 10},
		{Title: "Risk", Width: 6},
		{Title: "Expires", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		BorderBottom(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(ColorPrimary)
	t.SetStyles(s)

	return Model{
		active:    active,
		stats:     stats,
		keys:      DefaultKeyMap(),
		table:     t,
		feed:      make([]string, 0, 8),
		startedAt: time.Now(),
	}
}

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.feed = m.feed[:0]
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		if !m.paused {
			m.refresh()
		}
		return m, tickCmd()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// refresh re-samples the store and stats into the table and activity feed.
func (m *Model) refresh() {
	now := time.Now()
	opportunities := m.active.ActiveSnapshot()
	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].Profit.GreaterThan(opportunities[j].Profit)
	})

	rows := make([]table.Row, 0, len(opportunities))
	for _, opp := range opportunities {
		rows = append(rows, table.Row{
			opp.Key.Product.String(),
			fmt.Sprintf("%s %s", opp.TargetPrice.Amount.StringFixed(2), opp.Key.Target),
			fmt.Sprintf("%s %s", opp.SourcePrice.Amount.StringFixed(2), opp.Key.Source),
			opp.Profit.StringFixed(2),
			opp.Margin.StringFixed(1) + "%",
			opp.Fees.NetProfit.StringFixed(2),
			fmt.Sprintf("%.2f", opp.Risk),
			formatRemaining(opp.ExpiresAt.Sub(now)),
		})
	}
	m.table.SetRows(rows)

	snap := m.stats.Snapshot()
	m.feed = m.feed[:0]
	start := len(snap.Recent) - 8
	if start < 0 {
		start = 0
	}
	for _, ev := range snap.Recent[start:] {
		m.feed = append(m.feed, formatEvent(ev))
	}

	m.lastUpdate = now
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return "bye\n"
	}
	if !m.ready {
		return "loading..."
	}

	title := TitleStyle.Render(" gamearb detector ")

	snap := m.stats.Snapshot()
	status := fmt.Sprintf("active %d   profit %s   products %d   activated %d   superseded %d   expired %d   uptime %s",
		m.active.ActiveCount(), snap.ActiveProfit.StringFixed(2), snap.Products,
		snap.Activated, snap.Superseded, snap.Expired,
		time.Since(m.startedAt).Round(time.Second))
	if snap.BestKey != "" {
		status += fmt.Sprintf("   best %s (%s)", snap.BestKey, PositiveValue.Render(snap.BestProfit.StringFixed(2)))
	}
	if m.paused {
		status += "   " + WarnValue.Render("PAUSED")
	}

	tableBox := BoxStyle.Render(m.table.View())

	var feedLines []string
	for _, line := range m.feed {
		feedLines = append(feedLines, line)
	}
	if len(feedLines) == 0 {
		feedLines = append(feedLines, MutedValue.Render("no events yet"))
	}
	feedBox := BoxStyle.Render(
		HeaderStyle.Render("Events") + "\n" + strings.Join(feedLines, "\n"))

	bindings := m.keys.ShortHelp()
	if m.showHelp {
		bindings = m.keys.FullHelp()[0]
	}
	var helpParts []string
	for _, b := range bindings {
		helpParts = append(helpParts, b.Help().Key+" "+b.Help().Desc)
	}
	help := HelpStyle.Render(strings.Join(helpParts, " · "))

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		MutedValue.Render(status),
		tableBox,
		feedBox,
		help,
	)
}

func formatEvent(ev domain.Event) string {
	at := ev.At.Format("15:04:05")
	key := ev.Opportunity.Key.String()
	switch ev.Kind {
	case domain.EventActivated:
		return fmt.Sprintf("%s %s %s profit %s", at,
			PositiveValue.Render("ACTIVATED"), key, ev.Opportunity.Profit.StringFixed(2))
	case domain.EventSuperseded:
		return fmt.Sprintf("%s %s %s", at, WarnValue.Render("SUPERSEDED"), key)
	case domain.EventExpired:
		return fmt.Sprintf("%s %s %s", at, NegativeValue.Render("EXPIRED"), key)
	default:
		return fmt.Sprintf("%s %s %s", at, string(ev.Kind), key)
	}
}

func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "due"
	}
	if d > time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return d.Round(time.Second).String()
}
