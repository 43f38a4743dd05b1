package ui

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-sim/internal/pump"
)

func price(v int64) *int64 { return &v }

func newWatchFixture(t *testing.T, states pump.States) (*WatchModel, *pump.FileStore) {
	t.Helper()
	store := pump.NewFileStore(filepath.Join(t.TempDir(), "pump_token.json"), zap.NewNop())
	require.NoError(t, store.Save(states))
	m := NewWatchModel(store, time.Millisecond, zap.NewNop())
	m.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return m, store
}

func TestWatchModel_LoadsAndRecordsHistory(t *testing.T) {
	m, store := newWatchFixture(t, pump.States{
		{TokenAddress: "0xAAA", PumpStarted: true, InitialPrice: 1000, CurrentPrice: price(900), PumpedAt: 1_699_999_000, IncreasePercentage: 5},
		{TokenAddress: "0xBBB", IncreasePercentage: 5},
	})

	msg := m.Init()()
	_, cmd := m.Update(msg)
	require.NotNil(t, cmd, "a refresh tick must be scheduled")
	require.Len(t, m.states, 2)
	require.Contains(t, m.history, "0xaaa")
	assert.NotContains(t, m.history, "0xbbb")

	states, err := store.Load()
	require.NoError(t, err)
	states[0].CurrentPrice = price(800)
	require.NoError(t, store.Save(states))

	m.Update(m.load()())
	spark := m.history["0xaaa"]
	assert.Equal(t, 2, spark.Len())
	assert.Equal(t, 800.0, spark.Last())
	assert.Equal(t, "↘", spark.Trend())

	view := m.View()
	assert.Contains(t, view, "0xaaa")
	assert.Contains(t, view, "Pump states (2)")
}

func TestWatchModel_KeepsLastStatesOnError(t *testing.T) {
	m, _ := newWatchFixture(t, pump.States{{TokenAddress: "0xAAA", IncreasePercentage: 5}})
	m.Update(m.load()())
	require.Len(t, m.states, 1)

	m.Update(statesMsg{err: errors.New("pump state file is corrupt")})
	assert.Len(t, m.states, 1)
	assert.Contains(t, m.View(), "pump state file is corrupt")
}

func TestWatchModel_Keys(t *testing.T) {
	m, _ := newWatchFixture(t, pump.States{
		{TokenAddress: "0xAAA", PumpStarted: true, InitialPrice: 1000, PumpedAt: 1_699_999_000, IncreasePercentage: 5},
	})
	m.Update(m.load()())
	require.NotEmpty(t, m.history)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Empty(t, m.history)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	_, isStates := cmd().(statesMsg)
	assert.True(t, isStates)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSparkline(t *testing.T) {
	s := NewSparkline(3)
	assert.Equal(t, "→", s.Trend())
	for _, v := range []float64{5, 4, 3, 2} {
		s.AddDataPoint(v)
	}
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2.0, s.Last())
	assert.Equal(t, "↘", s.Trend())
	assert.Equal(t, "█▄▁", s.blocks())
}
