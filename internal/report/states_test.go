package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/pump-sim/internal/pump"
)

func TestBuildRows(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	current := int64(500)
	states := pump.States{
		{TokenAddress: "0xidle", IncreasePercentage: 10},
		{
			TokenAddress:       "0xpumped",
			PumpStarted:        true,
			InitialPrice:       1000,
			CurrentPrice:       &current,
			PumpedAt:           float64(now.Add(-10 * time.Minute).Unix()),
			IncreasePercentage: 10,
		},
	}

	rows := BuildRows(states, now)
	require.Len(t, rows, 2)

	assert.False(t, rows[0].Started)
	assert.Zero(t, rows[0].ElapsedMinutes)
	assert.Equal(t, 1.0, rows[0].Multiplier)

	assert.True(t, rows[1].Started)
	assert.InDelta(t, 10.0, rows[1].ElapsedMinutes, 1e-6)
	assert.InDelta(t, 100.0, rows[1].IncreasePct, 1e-6)
	assert.InDelta(t, 2.0, rows[1].Multiplier, 1e-6)
	assert.Equal(t, int64(500), rows[1].CurrentPrice)
}

func TestRenderStates(t *testing.T) {
	out := RenderStates(pump.States{{TokenAddress: "0x6982508145454ce325ddbe47a25d4ec3d2311933", IncreasePercentage: 3}}, time.Now())

	assert.Contains(t, out, "Pump states (1)")
	assert.Contains(t, out, "0x6982508145454ce325ddbe47a25d4ec3d2311933")
	assert.Contains(t, out, "idle")
}
