package beat

import "fmt"

// NumLanes is the number of independent rhythm generators in an Engine.
const NumLanes = 8

const (
	MaxLoopLength = 32
	MaxBars       = 32
	MinOctave     = -1
	MaxOctave     = 9
	MaxVelocity   = 127
	NumNotes      = 12
)

// The fine clock runs at 24 PPQN. A lane advances its pattern at most once
// every TicksPerStep clock ticks, and every note it triggers is held for
// SustainTicks ticks regardless of the step length.
const (
	TicksPerQuarter = 24
	QuartersPerBar  = 4
	TicksPerStep    = 6
	SustainTicks    = 6
	DefaultTempo    = 120.0
)

// Event is a note-on or note-off produced by a lane during one tick. Events
// are transient: they are produced and consumed within one processing cycle.
type Event struct {
	Lane     int
	Note     byte
	Velocity byte // 0 for note-offs
	On       bool
}

func (e Event) String() string {
	if e.On {
		return fmt.Sprintf("lane %d on %s vel %d", e.Lane+1, NoteNameOf(e.Note), e.Velocity)
	}
	return fmt.Sprintf("lane %d off %s", e.Lane+1, NoteNameOf(e.Note))
}

var noteNames = [NumNotes]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteToMIDI converts an octave and a note index within the octave into a
// MIDI note number. Octave -1 note 0 is MIDI note 0; the result is always
// clamped to 0..127.
func NoteToMIDI(octave, noteIndex int) byte {
	n := noteIndex + (octave+1)*NumNotes
	return byte(clamp(n, 0, 127))
}

// NoteName returns the name of the note, e.g. "C#4".
func NoteName(octave, noteIndex int) string {
	return NoteNameOf(NoteToMIDI(octave, noteIndex))
}

// NoteNameOf returns the name of a MIDI note number, e.g. 60 is "C4".
func NoteNameOf(note byte) string {
	return fmt.Sprintf("%s%d", noteNames[int(note)%NumNotes], int(note)/NumNotes-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
