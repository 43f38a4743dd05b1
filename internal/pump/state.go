// =============================
// File: internal/pump/state.go
// =============================
package pump

import (
	"strings"
	"time"

	"github.com/sugawarayuuta/sonnet"
)

// PumpHeadStart is how far pumped_at is back-dated when a pump starts,
// so the first distorted quote already sees elapsed time.
const PumpHeadStart = 5 * time.Minute

// State is the persisted pump state of one token.
type State struct {
	TokenAddress       string  `json:"token_address"`
	PumpStarted        bool    `json:"pump_started"`
	InitialPrice       int64   `json:"initial_price,omitempty"`
	CurrentPrice       *int64  `json:"current_price,omitempty"`
	PumpedAt           float64 `json:"pumped_at,omitempty"`
	IncreasePercentage float64 `json:"increase_percentage"`

	// Extra holds keys written by whoever seeded the file; they survive a save untouched.
	Extra map[string]sonnet.RawMessage `json:"-"`
}

// stateFields mirrors State without its methods, so encoding it does not recurse.
type stateFields State

var knownStateKeys = []string{
	"token_address", "pump_started", "initial_price",
	"current_price", "pumped_at", "increase_percentage",
}

func (s State) MarshalJSON() ([]byte, error) {
	data, err := sonnet.Marshal(stateFields(s))
	if err != nil || len(s.Extra) == 0 {
		return data, err
	}

	merged := make(map[string]sonnet.RawMessage, len(s.Extra)+len(knownStateKeys))
	if err := sonnet.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range s.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return sonnet.Marshal(merged)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var fields stateFields
	if err := sonnet.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]sonnet.RawMessage
	if err := sonnet.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownStateKeys {
		delete(raw, k)
	}

	*s = State(fields)
	s.Extra = nil
	if len(raw) > 0 {
		s.Extra = raw
	}
	return nil
}

// EffectiveCurrentPrice returns current_price, falling back to initial_price
// until the first decay update has been stored.
func (s *State) EffectiveCurrentPrice() int64 {
	if s.CurrentPrice != nil {
		return *s.CurrentPrice
	}
	return s.InitialPrice
}

// PumpedAtTime converts the stored Unix seconds into a time.Time.
func (s *State) PumpedAtTime() time.Time {
	return fromUnixSeconds(s.PumpedAt)
}

// States is the whole persisted collection.
type States []State

// Find returns the first state whose address matches case-insensitively, or nil.
// The returned pointer aliases the slice element, so mutations are persisted on Save.
func (ss States) Find(address string) *State {
	for i := range ss {
		if strings.EqualFold(ss[i].TokenAddress, address) {
			return &ss[i]
		}
	}
	return nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second)))
}
