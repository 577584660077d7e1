package params

import (
	"fmt"

	"github.com/ableplugs/beat"
	"gopkg.in/yaml.v3"
)

type (
	// Preset is the human editable form of the parameter state, stored as
	// YAML. Lanes not listed in a preset keep their defaults.
	Preset struct {
		Mute   bool         `yaml:",omitempty"`
		Select int          `yaml:",omitempty"`
		Lanes  []LanePreset `yaml:",omitempty"`
	}

	LanePreset struct {
		Bars      int
		Loop      int
		Beats     int
		Rotate    int
		NoteIndex int `yaml:"noteindex"`
		Octave    int
		Loud      int
		Mute      bool `yaml:",omitempty"`
		Solo      bool `yaml:",omitempty"`
	}
)

// DefaultPreset returns the preset of a freshly reset bank.
func DefaultPreset() Preset {
	return NewBank().Preset()
}

// ParsePreset decodes a YAML preset. Missing lane fields are filled with the
// lane defaults.
func ParsePreset(data []byte) (Preset, error) {
	var file struct {
		Mute   bool
		Select int
		Lanes  []yaml.Node
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Preset{}, fmt.Errorf("could not parse preset: %w", err)
	}
	if len(file.Lanes) > beat.NumLanes {
		return Preset{}, fmt.Errorf("preset has %d lanes, at most %d are supported", len(file.Lanes), beat.NumLanes)
	}
	p := Preset{Mute: file.Mute, Select: file.Select}
	for i := range file.Lanes {
		l := lanePreset(beat.DefaultLaneParams(i))
		if err := file.Lanes[i].Decode(&l); err != nil {
			return Preset{}, fmt.Errorf("could not parse lane %d of preset: %w", i+1, err)
		}
		p.Lanes = append(p.Lanes, l)
	}
	return p, nil
}

// Marshal encodes the preset as YAML.
func (p Preset) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// Validate reports the first value that is outside its declared range. Such
// values are clamped when the preset is applied.
func (p Preset) Validate() error {
	if p.Select != 0 && (p.Select < 1 || p.Select > beat.NumLanes) {
		return fmt.Errorf("select %d is outside 1..%d", p.Select, beat.NumLanes)
	}
	for i, l := range p.Lanes {
		params := l.laneParams()
		for param := beat.Param(0); param < beat.NumParams; param++ {
			r, v := LaneRange(param), params.Get(param)
			if v < r.Min || v > r.Max {
				return fmt.Errorf("lane %d: %v %d is outside %d..%d", i+1, param, v, r.Min, r.Max)
			}
		}
	}
	return nil
}

// Changes returns the parameter writes that apply the preset, selection
// first.
func (p Preset) Changes() []Change {
	sel := max(p.Select, 1)
	ret := []Change{
		{SelectID, selectRange.Normalize(sel)},
		{MuteID, boolValue(p.Mute)},
	}
	for i := 0; i < beat.NumLanes; i++ {
		l := LanePreset{}
		if i < len(p.Lanes) {
			l = p.Lanes[i]
		} else {
			l = lanePreset(beat.DefaultLaneParams(i))
		}
		params := l.laneParams()
		for param := beat.Param(0); param < beat.NumParams; param++ {
			ret = append(ret, Change{LaneParamID(i, param), LaneRange(param).Normalize(params.Get(param))})
		}
		ret = append(ret, Change{LaneMuteID(i), boolValue(l.Mute)}, Change{LaneSoloID(i), boolValue(l.Solo)})
	}
	return ret
}

// Preset returns the current values of the bank as a preset.
func (b *Bank) Preset() Preset {
	p := Preset{
		Mute:   b.Plain(MuteID) != 0,
		Select: b.Plain(SelectID),
	}
	for i := 0; i < beat.NumLanes; i++ {
		var params beat.LaneParams
		for param := beat.Param(0); param < beat.NumParams; param++ {
			params.Set(param, b.Plain(LaneParamID(i, param)))
		}
		l := lanePreset(params)
		l.Mute = b.Plain(LaneMuteID(i)) != 0
		l.Solo = b.Plain(LaneSoloID(i)) != 0
		p.Lanes = append(p.Lanes, l)
	}
	return p
}

func (l LanePreset) laneParams() beat.LaneParams {
	return beat.LaneParams{
		Bars:      l.Bars,
		Loop:      l.Loop,
		Pulses:    l.Beats,
		Rotate:    l.Rotate,
		NoteIndex: l.NoteIndex,
		Octave:    l.Octave,
		Velocity:  l.Loud,
	}
}

func lanePreset(p beat.LaneParams) LanePreset {
	return LanePreset{
		Bars:      p.Bars,
		Loop:      p.Loop,
		Beats:     p.Pulses,
		Rotate:    p.Rotate,
		NoteIndex: p.NoteIndex,
		Octave:    p.Octave,
		Loud:      p.Velocity,
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
