// Package params is the host facing parameter layer of the beat engine: it
// declares the parameter IDs with their ranges and defaults, converts between
// normalized (0..1) and plain values, and keeps the normalized values that are
// persisted by the host.
package params

import (
	"errors"
	"fmt"
	"math"

	"github.com/ableplugs/beat"
)

type (
	// ID identifies a host parameter. The IDs follow the layout of the
	// original plugin so that saved sessions keep their meaning: global mute,
	// lane select and reset first, then blocks of per-lane parameters, the
	// parameters of the selected ("active") lane, the lane mutes and the lane
	// solos.
	ID int

	// Kind tells what a parameter ID controls.
	Kind int

	// Range is an inclusive range of plain parameter values.
	Range struct {
		Min, Max int
	}

	// Info describes a parameter ID.
	Info struct {
		Kind  Kind
		Name  string
		Lane  int        // zero-based lane, -1 if not a lane parameter
		Param beat.Param // for KindLaneParam and KindActiveParam
		Range Range
	}

	// Change is a write of a normalized value to a parameter.
	Change struct {
		ID    ID
		Value float64
	}
)

const (
	MuteID ID = iota
	SelectID
	ResetID
	laneBase
)

const (
	perLane      = int(beat.NumParams)
	activeBase   = int(laneBase) + beat.NumLanes*perLane
	laneMuteBase = activeBase + perLane
	laneSoloBase = laneMuteBase + beat.NumLanes
	// NumIDs is the number of declared parameter IDs.
	NumIDs = laneSoloBase + beat.NumLanes
)

const (
	KindInvalid Kind = iota
	KindMute
	KindSelect
	KindReset
	KindLaneParam
	KindActiveParam
	KindLaneMute
	KindLaneSolo
)

// ErrUnknownParam is returned when a parameter name cannot be resolved.
var ErrUnknownParam = errors.New("unknown parameter")

var laneRanges = [beat.NumParams]Range{
	beat.BarsParam:      {1, beat.MaxBars},
	beat.LoopParam:      {1, beat.MaxLoopLength},
	beat.PulsesParam:    {0, beat.MaxLoopLength},
	beat.RotateParam:    {0, beat.MaxLoopLength},
	beat.NoteIndexParam: {0, beat.NumNotes - 1},
	beat.OctaveParam:    {beat.MinOctave, beat.MaxOctave},
	beat.VelocityParam:  {0, beat.MaxVelocity},
}

var (
	boolRange   = Range{0, 1}
	selectRange = Range{1, beat.NumLanes}
)

func LaneParamID(lane int, p beat.Param) ID {
	return ID(int(laneBase) + lane*perLane + int(p))
}

func ActiveParamID(p beat.Param) ID { return ID(activeBase + int(p)) }
func LaneMuteID(lane int) ID        { return ID(laneMuteBase + lane) }
func LaneSoloID(lane int) ID        { return ID(laneSoloBase + lane) }

// LaneRange returns the declared range of a lane parameter.
func LaneRange(p beat.Param) Range {
	if p < 0 || p >= beat.NumParams {
		return Range{}
	}
	return laneRanges[p]
}

// Info describes the parameter. Unknown IDs have KindInvalid.
func (id ID) Info() Info {
	i := int(id)
	switch {
	case id == MuteID:
		return Info{Kind: KindMute, Name: "Mute", Lane: -1, Range: boolRange}
	case id == SelectID:
		return Info{Kind: KindSelect, Name: "Beat Select", Lane: -1, Range: selectRange}
	case id == ResetID:
		return Info{Kind: KindReset, Name: "Reset", Lane: -1, Range: boolRange}
	case i >= int(laneBase) && i < activeBase:
		rel := i - int(laneBase)
		p := beat.Param(rel % perLane)
		return Info{Kind: KindLaneParam, Name: p.String(), Lane: rel / perLane, Param: p, Range: laneRanges[p]}
	case i >= activeBase && i < laneMuteBase:
		p := beat.Param(i - activeBase)
		return Info{Kind: KindActiveParam, Name: p.String(), Lane: -1, Param: p, Range: laneRanges[p]}
	case i >= laneMuteBase && i < laneSoloBase:
		return Info{Kind: KindLaneMute, Name: "Lane Mute", Lane: i - laneMuteBase, Range: boolRange}
	case i >= laneSoloBase && i < NumIDs:
		return Info{Kind: KindLaneSolo, Name: "Lane Solo", Lane: i - laneSoloBase, Range: boolRange}
	}
	return Info{Kind: KindInvalid, Lane: -1}
}

func (id ID) String() string {
	info := id.Info()
	switch info.Kind {
	case KindInvalid:
		return fmt.Sprintf("ID(%d)", int(id))
	case KindLaneParam, KindLaneMute, KindLaneSolo:
		return fmt.Sprintf("%s %d", info.Name, info.Lane+1)
	case KindActiveParam:
		return "Active " + info.Name
	}
	return info.Name
}

// Default returns the default plain value of the parameter.
func (id ID) Default() int {
	info := id.Info()
	switch info.Kind {
	case KindSelect:
		return 1
	case KindLaneParam:
		return beat.DefaultLaneParams(info.Lane).Get(info.Param)
	}
	return 0
}

// Normalize maps a plain value into 0..1. Values outside the range are
// clamped.
func (r Range) Normalize(v int) float64 {
	if r.Max <= r.Min {
		return 0
	}
	v = min(max(v, r.Min), r.Max)
	return float64(v-r.Min) / float64(r.Max-r.Min)
}

// Plain maps a normalized value to the nearest plain value in the range.
func (r Range) Plain(n float64) int {
	if math.IsNaN(n) {
		n = 0
	}
	v := float64(r.Min) + n*float64(r.Max-r.Min)
	v = math.Max(float64(r.Min), math.Min(float64(r.Max), v))
	return int(math.Round(v))
}

// Parse resolves a parameter from its lane (one-based, 0 for the selected
// lane or a global parameter) and its name, e.g. (3, "Loop") or (0, "Mute").
func Parse(lane int, name string) (ID, error) {
	switch name {
	case "Mute":
		if lane == 0 {
			return MuteID, nil
		}
		return LaneMuteID(lane - 1), checkLane(lane, name)
	case "Solo":
		return LaneSoloID(lane - 1), checkLane(lane, name)
	case "Select", "BeatSelect":
		return SelectID, nil
	case "Reset":
		return ResetID, nil
	}
	p, ok := beat.ParseParam(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	if lane == 0 {
		return ActiveParamID(p), nil
	}
	return LaneParamID(lane-1, p), checkLane(lane, name)
}

func checkLane(lane int, name string) error {
	if lane < 1 || lane > beat.NumLanes {
		return fmt.Errorf("%w: %q of lane %d", ErrUnknownParam, name, lane)
	}
	return nil
}
