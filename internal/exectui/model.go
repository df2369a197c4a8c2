package exectui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickMsg drives the periodic refresh.
type TickMsg time.Time

// Snapshot is a point-in-time read of pool state, decoupled from execpool so
// this package never imports it directly; the host wires a StatsSource that
// knows how to build one.
type Snapshot struct {
	QueueDepth int
	Pending    int
	Running    int
	Completed  int
	Failed     int

	P50Latency time.Duration
	P95Latency time.Duration
	P99Latency time.Duration
}

// StatsSource supplies the current Snapshot on demand.
type StatsSource interface {
	Snapshot() Snapshot
}

// Model is the Bubble Tea model for the pool dashboard.
type Model struct {
	source StatsSource

	snapshot  Snapshot
	startTime time.Time
	width     int
	height    int
	quitting  bool
}

// New creates a dashboard model reading from source.
func New(source StatsSource) Model {
	return Model{
		source:    source,
		startTime: time.Now(),
		width:     80,
		height:    24,
	}
}

// Init starts the refresh tick.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case TickMsg:
		if m.source != nil {
			m.snapshot = m.source.Snapshot()
		}
		return m, tickCmd()
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return render(m.snapshot, time.Since(m.startTime))
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
