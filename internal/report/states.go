// Package report renders pump states for the terminal.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/pump-sim/internal/pump"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

var columns = []struct {
	title string
	width int
}{
	{"TOKEN", 44},
	{"STATUS", 8},
	{"INITIAL", 14},
	{"CURRENT", 14},
	{"ELAPSED", 9},
	{"RATE %/m", 9},
	{"INCREASE %", 11},
	{"MULT", 7},
}

// Row is the derived, display-ready view of one pump state.
type Row struct {
	Token          string
	Started        bool
	InitialPrice   int64
	CurrentPrice   int64
	ElapsedMinutes float64
	Rate           float64
	IncreasePct    float64
	Multiplier     float64
}

// BuildRows derives display rows; elapsed and increase are zero for idle tokens.
func BuildRows(states pump.States, now time.Time) []Row {
	rows := make([]Row, 0, len(states))
	for i := range states {
		st := &states[i]
		row := Row{
			Token:        st.TokenAddress,
			Started:      st.PumpStarted,
			InitialPrice: st.InitialPrice,
			CurrentPrice: st.EffectiveCurrentPrice(),
			Rate:         st.IncreasePercentage,
			Multiplier:   1,
		}
		if st.PumpStarted {
			row.ElapsedMinutes = now.Sub(st.PumpedAtTime()).Minutes()
			row.IncreasePct = pump.PercentIncrease(st.PumpedAt, st.IncreasePercentage, now)
			if m, err := pump.InputMultiplier(st); err == nil {
				row.Multiplier = m
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func cell(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

// RenderStates draws a table of all pump states as of now.
func RenderStates(states pump.States, now time.Time) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Pump states (%d)", len(states))))
	b.WriteString("\n")

	header := make([]string, 0, len(columns))
	for _, c := range columns {
		header = append(header, headerStyle.Render(cell(c.title, c.width)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header...))
	b.WriteString("\n")

	for _, row := range BuildRows(states, now) {
		status, style := "idle", idleStyle
		if row.Started {
			status, style = "pumping", activeStyle
		}
		values := []string{
			row.Token,
			status,
			fmt.Sprintf("%d", row.InitialPrice),
			fmt.Sprintf("%d", row.CurrentPrice),
			fmt.Sprintf("%.1fm", row.ElapsedMinutes),
			fmt.Sprintf("%.2f", row.Rate),
			fmt.Sprintf("%.2f", row.IncreasePct),
			fmt.Sprintf("%.3f", row.Multiplier),
		}
		cells := make([]string, 0, len(values))
		for i, v := range values {
			cells = append(cells, style.Render(cell(v, columns[i].width)))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}
