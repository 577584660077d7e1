package beat

import (
	"fmt"
	"math"
)

type (
	// LaneParams are the user facing parameters of one lane. Pulses may
	// transiently exceed Loop, in which case the lane is muted until the
	// parameters become consistent again.
	LaneParams struct {
		Bars      int
		Loop      int
		Pulses    int
		Rotate    int
		Octave    int
		NoteIndex int
		Velocity  int
	}

	// Param identifies one field of LaneParams.
	Param int

	// Lane is a single Euclidean step sequencer. Parameter writes only mark
	// the derived pattern or pitch dirty; the rebuild happens lazily at the
	// start of the next Tick, so that all writes of a processing buffer are
	// applied before anything derived from them is evaluated.
	Lane struct {
		index  int
		params LaneParams

		pattern   []bool
		cursor    int
		countdown int
		stepTicks int

		note       byte
		offNote    byte // pitch of the held note
		offTick    int64
		offPending bool
		sounding   bool

		invalid      bool // Pulses > Loop at the last rebuild
		externalMute bool
		dirty        dirtyState
	}

	dirtyState uint8
)

const (
	BarsParam Param = iota
	LoopParam
	PulsesParam
	RotateParam
	NoteIndexParam
	OctaveParam
	VelocityParam
	NumParams
)

const (
	clean        dirtyState = 0
	patternDirty dirtyState = 1 << 0
	notesDirty   dirtyState = 1 << 1
	bothDirty    dirtyState = patternDirty | notesDirty
)

var paramNames = [NumParams]string{"Bars", "Loop", "Beats", "Rotate", "NoteIndex", "Octave", "Loud"}

func (p Param) String() string {
	if p < 0 || p >= NumParams {
		return fmt.Sprintf("Param(%d)", int(p))
	}
	return paramNames[p]
}

// ParseParam finds a parameter by its name. "Note" is accepted as an alias
// of "NoteIndex" and "Pulses" of "Beats".
func ParseParam(name string) (Param, bool) {
	switch name {
	case "Note":
		return NoteIndexParam, true
	case "Pulses":
		return PulsesParam, true
	case "Velocity":
		return VelocityParam, true
	}
	for i, n := range paramNames {
		if n == name {
			return Param(i), true
		}
	}
	return 0, false
}

// DefaultLaneParams returns the parameters a lane starts with. Lanes default
// to consecutive pitches of the chromatic scale and are silent (Velocity 0)
// until the user gives them a loudness.
func DefaultLaneParams(index int) LaneParams {
	return LaneParams{
		Bars:      4,
		Loop:      16,
		Pulses:    4,
		Rotate:    0,
		Octave:    2,
		NoteIndex: index % NumNotes,
		Velocity:  0,
	}
}

// Get returns the value of a single parameter.
func (p LaneParams) Get(param Param) int {
	switch param {
	case BarsParam:
		return p.Bars
	case LoopParam:
		return p.Loop
	case PulsesParam:
		return p.Pulses
	case RotateParam:
		return p.Rotate
	case NoteIndexParam:
		return p.NoteIndex
	case OctaveParam:
		return p.Octave
	case VelocityParam:
		return p.Velocity
	}
	return 0
}

// Set sets the value of a single parameter.
func (p *LaneParams) Set(param Param, value int) bool {
	switch param {
	case BarsParam:
		p.Bars = value
	case LoopParam:
		p.Loop = value
	case PulsesParam:
		p.Pulses = value
	case RotateParam:
		p.Rotate = value
	case NoteIndexParam:
		p.NoteIndex = value
	case OctaveParam:
		p.Octave = value
	case VelocityParam:
		p.Velocity = value
	default:
		return false
	}
	return true
}

// NewLane creates a lane with the default parameters for the given index.
func NewLane(index int) *Lane {
	l := &Lane{}
	l.init(index)
	return l
}

func (l *Lane) init(index int) {
	pattern := l.pattern
	if cap(pattern) < MaxLoopLength {
		pattern = make([]bool, 0, MaxLoopLength)
	}
	*l = Lane{index: index, params: DefaultLaneParams(index), pattern: pattern[:0]}
	l.rebuildNotes()
	l.rebuildPattern()
}

func (l *Lane) Index() int         { return l.index }
func (l *Lane) Params() LaneParams { return l.params }
func (l *Lane) Note() byte         { return l.note }
func (l *Lane) StepTicks() int     { return l.stepTicks }
func (l *Lane) Cursor() int        { return l.cursor }
func (l *Lane) Sounding() bool     { return l.sounding }

// Pattern returns the current derived pattern. The returned slice is owned by
// the lane and must not be modified.
func (l *Lane) Pattern() []bool { return l.pattern }

// SetParam updates one parameter. Octave and NoteIndex invalidate the pitch;
// Bars, Loop, Pulses and Rotate invalidate the pattern; Velocity invalidates
// neither, as loudness only affects muting and the velocity of new notes.
func (l *Lane) SetParam(param Param, value int) bool {
	if !l.params.Set(param, value) {
		return false
	}
	switch param {
	case OctaveParam, NoteIndexParam:
		l.dirty |= notesDirty
	case BarsParam, LoopParam, PulsesParam, RotateParam:
		l.dirty |= patternDirty
	}
	return true
}

// SetNamedParam is like SetParam, but finds the parameter by its name.
func (l *Lane) SetNamedParam(name string, value int) bool {
	p, ok := ParseParam(name)
	if !ok {
		return false
	}
	return l.SetParam(p, value)
}

// SetParams replaces all parameters at once.
func (l *Lane) SetParams(p LaneParams) {
	l.params = p
	l.dirty = bothDirty
}

// SetExternalMute sets the mute imposed from outside the lane, i.e. the lane
// mute and solo gating of the Engine.
func (l *Lane) SetExternalMute(muted bool) { l.externalMute = muted }

// Muted reports whether the lane is muted by its own parameters: Pulses or
// Velocity is zero, or Pulses exceeded Loop at the last rebuild.
func (l *Lane) Muted() bool {
	return l.invalid || l.params.Pulses <= 0 || l.params.Velocity <= 0
}

func (l *Lane) rebuildNotes() {
	l.note = NoteToMIDI(l.params.Octave, l.params.NoteIndex)
	l.dirty &^= notesDirty
}

func (l *Lane) rebuildPattern() {
	l.dirty &^= patternDirty
	p := l.params
	if p.Loop < p.Pulses {
		l.invalid = true
		return
	}
	l.invalid = false
	steps := max(p.Loop, 1)
	var err error
	if l.pattern, err = AppendEuclid(l.pattern[:0], steps, p.Pulses); err != nil {
		l.pattern = l.pattern[:0]
		for i := 0; i < steps; i++ {
			l.pattern = append(l.pattern, false)
		}
		l.invalid = true
	}
	if p.Rotate != 0 {
		rotateRight(l.pattern, p.Rotate)
	}
	l.stepTicks = stepTicks(p.Bars, steps)
	l.cursor = 0
	l.countdown = l.stepTicks
}

// stepTicks returns the number of clock ticks between two steps when a
// pattern of the given number of steps spans the given number of bars.
func stepTicks(bars, steps int) int {
	ticksPerBar := bars * QuartersPerBar * TicksPerQuarter
	t := int(math.Round(float64(ticksPerBar) / TicksPerStep / float64(steps)))
	return max(t, 1)
}

func (l *Lane) rebuild() {
	if l.dirty&notesDirty != 0 {
		l.rebuildNotes()
	}
	if l.dirty&patternDirty != 0 {
		l.rebuildPattern()
	}
}

// Tick advances the lane by one clock tick, appending the events it produces
// to out. While muted, the lane does not advance: muting freezes the
// sequence. The first muted tick after the lane was playing flushes a single
// note-off.
func (l *Lane) Tick(globalTick int64, out []Event) []Event {
	if l.dirty != clean {
		l.rebuild()
	}
	if l.Muted() || l.externalMute {
		if l.sounding {
			out = append(out, l.noteOff())
			l.sounding = false
			l.offPending = false
		}
		return out
	}
	l.sounding = true
	if l.offPending && globalTick >= l.offTick {
		out = append(out, l.noteOff())
		l.offPending = false
	}
	l.countdown--
	if l.countdown > 0 {
		return out
	}
	l.countdown = l.stepTicks
	if len(l.pattern) == 0 {
		return out
	}
	if l.pattern[l.cursor] {
		out = append(out, Event{Lane: l.index, Note: l.note, Velocity: byte(clamp(l.params.Velocity, 0, MaxVelocity)), On: true})
		l.offNote = l.note
		l.offTick = globalTick + SustainTicks
		l.offPending = true
	}
	l.cursor++
	if l.cursor >= len(l.pattern) {
		l.cursor = 0
	}
	return out
}

// Locate aligns the sequencer position as if the lane had been ticking
// continuously since tick 0 with its current parameters, lastTick being the
// last tick already processed. It is used when the transport starts, to keep
// the patterns locked to the host timeline.
func (l *Lane) Locate(lastTick int64) {
	if l.dirty != clean {
		l.rebuild()
	}
	l.offPending = false
	if len(l.pattern) == 0 {
		return
	}
	step := int64(l.stepTicks)
	if lastTick < 0 {
		l.cursor = 0
		l.countdown = l.stepTicks - int(lastTick)
		return
	}
	steps := lastTick / step
	l.countdown = l.stepTicks - int(lastTick%step)
	l.cursor = int(steps % int64(len(l.pattern)))
}

// PurgeEvent returns a note-off for the held note, or for the lane's current
// pitch if no note is held, and forgets any pending note-off.
func (l *Lane) PurgeEvent() Event {
	e := Event{Lane: l.index, Note: NoteToMIDI(l.params.Octave, l.params.NoteIndex)}
	if l.offPending {
		e.Note = l.offNote
	}
	l.offPending = false
	l.sounding = false
	return e
}

// noteOff releases the held note, or the current pitch if no note is held.
func (l *Lane) noteOff() Event {
	if l.offPending {
		return Event{Lane: l.index, Note: l.offNote}
	}
	return Event{Lane: l.index, Note: l.note}
}
