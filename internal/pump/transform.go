// =============================
// File: internal/pump/transform.go
// =============================
package pump

import (
	"fmt"
	"math"
	"time"
)

// PercentIncrease returns rate * elapsed minutes since pumpedAt (Unix seconds).
func PercentIncrease(pumpedAt, rate float64, now time.Time) float64 {
	elapsedMinutes := (unixSeconds(now) - pumpedAt) / 60
	return rate * elapsedMinutes
}

// InputMultiplier is initial_price / current_price for a started pump.
func InputMultiplier(st *State) (float64, error) {
	current := st.EffectiveCurrentPrice()
	if current <= 0 {
		return 0, fmt.Errorf("%w: token %s has current price %d", ErrInvalidState, st.TokenAddress, current)
	}
	return float64(st.InitialPrice) / float64(current), nil
}

// TransformInput scales an input quote by how far the token has pumped.
// It never mutates st; tokens without a started pump pass through.
func TransformInput(raw int64, st *State) (int64, error) {
	if st == nil || !st.PumpStarted {
		return raw, nil
	}
	multiplier, err := InputMultiplier(st)
	if err != nil {
		return 0, err
	}
	return roundToInt64(float64(raw) * multiplier), nil
}

// roundToInt64 rounds half to even and saturates at the int64 bounds.
func roundToInt64(v float64) int64 {
	v = math.RoundToEven(v)
	switch {
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}

// TransformOutput applies the decay curve to an output quote.
//
// Negative raw values are backend sentinels and pass through untouched.
// The first call on an idle token starts the pump and returns raw; later calls
// return initial_price / (1 + pct/100) truncated and store it as current_price.
// The bool result reports whether st was mutated.
func TransformOutput(raw int64, st *State, now time.Time) (int64, bool, error) {
	if raw < 0 || st == nil {
		return raw, false, nil
	}

	if !st.PumpStarted {
		st.PumpStarted = true
		st.InitialPrice = raw
		st.PumpedAt = unixSeconds(now.Add(-PumpHeadStart))
		return raw, true, nil
	}

	pct := PercentIncrease(st.PumpedAt, st.IncreasePercentage, now)
	denominator := 1 + pct/100
	if denominator <= 0 {
		return 0, false, fmt.Errorf("%w: token %s decays through zero (increase %.4f%%)",
			ErrInvalidState, st.TokenAddress, pct)
	}

	newPrice := int64(float64(st.InitialPrice) / denominator)
	st.CurrentPrice = &newPrice
	return newPrice, true, nil
}
