package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline represents a mini graph of a token's distorted price
type Sparkline struct {
	data  []float64
	width int
	style lipgloss.Style
}

// NewSparkline creates a new sparkline component
func NewSparkline(width int) *Sparkline {
	return &Sparkline{
		data:  make([]float64, 0, width),
		width: width,
		style: lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

// AddDataPoint adds a new data point to the sparkline
func (s *Sparkline) AddDataPoint(value float64) *Sparkline {
	s.data = append(s.data, value)
	// Keep only the last `width` points
	if len(s.data) > s.width {
		s.data = s.data[len(s.data)-s.width:]
	}
	return s
}

// Len returns the number of retained points.
func (s *Sparkline) Len() int {
	return len(s.data)
}

// Last returns the most recent point, or 0.
func (s *Sparkline) Last() float64 {
	if len(s.data) == 0 {
		return 0
	}
	return s.data[len(s.data)-1]
}

// Trend returns the direction of the last move.
func (s *Sparkline) Trend() string {
	if len(s.data) < 2 {
		return "→"
	}
	prev, cur := s.data[len(s.data)-2], s.data[len(s.data)-1]
	switch {
	case cur > prev:
		return "↗"
	case cur < prev:
		return "↘"
	default:
		return "→"
	}
}

// View renders the sparkline
func (s *Sparkline) View() string {
	return s.style.Render(s.blocks()) + " " + s.Trend()
}

func (s *Sparkline) blocks() string {
	if len(s.data) == 0 {
		return strings.Repeat("▁", s.width)
	}

	min, max := s.data[0], s.data[0]
	for _, v := range s.data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	var result strings.Builder
	for _, value := range s.data {
		index := len(sparkChars) / 2
		if max > min {
			index = int((value - min) / (max - min) * float64(len(sparkChars)-1))
		}
		result.WriteRune(sparkChars[index])
	}
	for i := len(s.data); i < s.width; i++ {
		result.WriteRune(' ')
	}
	return result.String()
}
