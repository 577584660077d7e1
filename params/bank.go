package params

import (
	"math"

	"github.com/ableplugs/beat"
)

// NumStateValues is the number of values in the persisted state.
const NumStateValues = 2 + beat.NumLanes*(perLane+2)

// stateOrder lists the persisted IDs in their declaration order: global mute,
// lane select, then for each lane its parameters followed by its mute and solo.
var stateOrder = func() [NumStateValues]ID {
	var ret [NumStateValues]ID
	ret[0], ret[1] = MuteID, SelectID
	i := 2
	for lane := 0; lane < beat.NumLanes; lane++ {
		for p := beat.Param(0); p < beat.NumParams; p++ {
			ret[i] = LaneParamID(lane, p)
			i++
		}
		ret[i], ret[i+1] = LaneMuteID(lane), LaneSoloID(lane)
		i += 2
	}
	return ret
}()

var stateIndex = func() [NumIDs]int {
	var ret [NumIDs]int
	for i := range ret {
		ret[i] = -1
	}
	for i, id := range stateOrder {
		ret[id] = i
	}
	return ret
}()

// StateIndex returns the position of the parameter in the persisted state.
// Reset and the active parameters are not persisted.
func StateIndex(id ID) (int, bool) {
	if id < 0 || int(id) >= NumIDs || stateIndex[id] < 0 {
		return 0, false
	}
	return stateIndex[id], true
}

// StateOrder returns the persisted IDs in declaration order.
func StateOrder() []ID {
	ret := stateOrder
	return ret[:]
}

// Bank holds the normalized value of every parameter and applies writes to an
// engine. The active parameters have no value of their own: a write to one is
// routed to the selected lane, and reading one reads the selected lane.
type Bank struct {
	values [NumIDs]float64
}

func NewBank() *Bank {
	b := &Bank{}
	b.setDefaults()
	return b
}

func (b *Bank) setDefaults() {
	for id := ID(0); id < ID(NumIDs); id++ {
		b.values[id] = id.Info().Range.Normalize(id.Default())
	}
}

// resolve maps an active parameter to the per-lane parameter of the selected
// lane.
func (b *Bank) resolve(id ID) ID {
	info := id.Info()
	if info.Kind != KindActiveParam {
		return id
	}
	lane := b.Plain(SelectID) - 1
	return LaneParamID(lane, info.Param)
}

// Value returns the normalized value of the parameter, or 0 for an unknown ID.
func (b *Bank) Value(id ID) float64 {
	if id < 0 || int(id) >= NumIDs {
		return 0
	}
	return b.values[b.resolve(id)]
}

// Plain returns the plain value of the parameter.
func (b *Bank) Plain(id ID) int {
	if id < 0 || int(id) >= NumIDs {
		return 0
	}
	id = b.resolve(id)
	return id.Info().Range.Plain(b.values[id])
}

// Apply writes the normalized value of a parameter and forwards the plain
// value to the engine. It reports whether the write was a reset trigger; the
// caller is expected to flush the sounding notes and then call Reset.
// Writes to unknown IDs are ignored. A nil engine only updates the bank.
func (b *Bank) Apply(e *beat.Engine, c Change) (reset bool) {
	if c.ID < 0 || int(c.ID) >= NumIDs {
		return false
	}
	n := c.Value
	if math.IsNaN(n) {
		n = 0
	}
	n = math.Max(0, math.Min(1, n))
	id := b.resolve(c.ID)
	info := id.Info()
	plain := info.Range.Plain(n)
	if info.Kind == KindReset {
		return n > 0.5
	}
	b.values[id] = n
	if e == nil {
		return false
	}
	switch info.Kind {
	case KindMute:
		e.SetMuted(n > 0.5)
	case KindSelect:
		e.SelectLane(plain)
	case KindLaneParam:
		e.SetLaneParam(info.Lane, info.Param, plain)
	case KindLaneMute:
		e.SetLaneMute(info.Lane, n > 0.5)
	case KindLaneSolo:
		e.SetLaneSolo(info.Lane, n > 0.5)
	}
	return false
}

// Reset restores the defaults of the bank and the engine. It does not flush
// sounding notes.
func (b *Bank) Reset(e *beat.Engine) {
	b.setDefaults()
	if e != nil {
		e.Reset()
	}
}

// State returns the persisted values in declaration order, appended to dst.
func (b *Bank) State(dst []float64) []float64 {
	for _, id := range stateOrder {
		dst = append(dst, b.values[id])
	}
	return dst
}

// SetState applies the persisted values in declaration order. Missing values
// keep their current setting and excess values are ignored.
func (b *Bank) SetState(e *beat.Engine, values []float64) {
	for i, v := range values {
		if i >= NumStateValues {
			break
		}
		b.Apply(e, Change{ID: stateOrder[i], Value: v})
	}
}

// Sync pushes all values of the bank to the engine.
func (b *Bank) Sync(e *beat.Engine) {
	for _, id := range stateOrder {
		b.Apply(e, Change{ID: id, Value: b.values[id]})
	}
}
