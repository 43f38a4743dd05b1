// Package ui contains the live terminal view of pump states.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-sim/internal/pump"
	"github.com/rovshanmuradov/pump-sim/internal/report"
)

const (
	DefaultRefreshInterval = time.Second
	sparkWidth             = 40
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	tokenStyle = lipgloss.NewStyle().Width(44)
)

// statesMsg carries a fresh snapshot of the state file.
type statesMsg struct {
	states pump.States
	err    error
	at     time.Time
}

type tickMsg time.Time

// WatchModel polls the pump-state store and redraws the state table with
// a price history per pumping token. It only ever reads the store.
type WatchModel struct {
	store    pump.Store
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
	keys     KeyMap

	states  pump.States
	history map[string]*Sparkline
	order   []string
	err     error
	updated time.Time
	width   int
}

func NewWatchModel(store pump.Store, interval time.Duration, logger *zap.Logger) *WatchModel {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &WatchModel{
		store:    store,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		keys:     DefaultKeyMap(),
		history:  make(map[string]*Sparkline),
	}
}

func (m *WatchModel) Init() tea.Cmd {
	return m.load()
}

func (m *WatchModel) load() tea.Cmd {
	return func() tea.Msg {
		states, err := m.store.Load()
		return statesMsg{states: states, err: err, at: m.now()}
	}
}

func (m *WatchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.load()
		case key.Matches(msg, m.keys.Clear):
			m.history = make(map[string]*Sparkline)
			m.order = nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		return m, m.load()

	case statesMsg:
		m.updated = msg.at
		m.err = msg.err
		if msg.err != nil {
			m.logger.Warn("Failed to load pump states", zap.Error(msg.err))
		} else {
			m.states = msg.states
			m.record(msg.states)
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *WatchModel) record(states pump.States) {
	for i := range states {
		st := &states[i]
		if !st.PumpStarted {
			continue
		}
		k := strings.ToLower(st.TokenAddress)
		spark, ok := m.history[k]
		if !ok {
			spark = NewSparkline(sparkWidth)
			m.history[k] = spark
			m.order = append(m.order, k)
		}
		spark.AddDataPoint(float64(st.EffectiveCurrentPrice()))
	}
}

func (m *WatchModel) View() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(report.RenderStates(m.states, m.updated))
	if len(m.order) > 0 {
		b.WriteString("\n")
		for _, k := range m.order {
			spark := m.history[k]
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
				tokenStyle.Render(k),
				spark.View(),
				fmt.Sprintf(" %d", int64(spark.Last()))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("updated %s", m.updated.Format("15:04:05"))))
	b.WriteString("  ")
	b.WriteString(m.keys.ShortHelp())
	b.WriteString("\n")
	return b.String()
}
