package player

import (
	"fmt"

	"github.com/ableplugs/beat"
	"github.com/ableplugs/beat/params"
)

const (
	numChannels    = 16
	numControllers = 128
)

// CCMap maps MIDI control changes to parameter writes. Lookups do not
// allocate, so the map can be consulted on the audio thread.
type CCMap struct {
	ids   [numChannels][numControllers]params.ID
	bound [numChannels][numControllers]bool
}

// Binding is a single entry of a CCMap. Channel is one-based.
type Binding struct {
	Channel    int
	Controller int
	ID         params.ID
}

// DefaultCCMap binds controllers 20..26 of channel 1 to the parameters of the
// selected lane, 27 to the lane selection, 28 to the global mute and 29 to
// reset.
func DefaultCCMap() *CCMap {
	m := &CCMap{}
	for p := beat.Param(0); p < beat.NumParams; p++ {
		m.Bind(Binding{Channel: 1, Controller: 20 + int(p), ID: params.ActiveParamID(p)})
	}
	m.Bind(Binding{Channel: 1, Controller: 27, ID: params.SelectID})
	m.Bind(Binding{Channel: 1, Controller: 28, ID: params.MuteID})
	m.Bind(Binding{Channel: 1, Controller: 29, ID: params.ResetID})
	return m
}

func (m *CCMap) Bind(b Binding) error {
	if b.Channel < 1 || b.Channel > numChannels {
		return fmt.Errorf("MIDI channel %d is outside 1..%d", b.Channel, numChannels)
	}
	if b.Controller < 0 || b.Controller >= numControllers {
		return fmt.Errorf("MIDI controller %d is outside 0..%d", b.Controller, numControllers-1)
	}
	if b.ID < 0 || int(b.ID) >= params.NumIDs {
		return fmt.Errorf("%w: %v", params.ErrUnknownParam, b.ID)
	}
	m.ids[b.Channel-1][b.Controller] = b.ID
	m.bound[b.Channel-1][b.Controller] = true
	return nil
}

// Lookup converts a control change on a zero-based channel into a parameter
// write.
func (m *CCMap) Lookup(c Control) (params.Change, bool) {
	if int(c.Channel) >= numChannels || int(c.Controller) >= numControllers {
		return params.Change{}, false
	}
	if !m.bound[c.Channel][c.Controller] {
		return params.Change{}, false
	}
	return params.Change{ID: m.ids[c.Channel][c.Controller], Value: float64(min(c.Value, 127)) / 127}, true
}

// Bindings lists the entries of the map.
func (m *CCMap) Bindings() []Binding {
	var ret []Binding
	for ch := range m.bound {
		for cc, ok := range m.bound[ch] {
			if ok {
				ret = append(ret, Binding{Channel: ch + 1, Controller: cc, ID: m.ids[ch][cc]})
			}
		}
	}
	return ret
}
