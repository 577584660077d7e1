// Package render runs the player offline, as if a host played the given
// number of bars from a transport position, and collects the produced notes
// with their absolute frame positions.
package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/ableplugs/beat"
	"github.com/ableplugs/beat/params"
	"github.com/ableplugs/beat/player"
)

type (
	Options struct {
		SampleRate float64
		Tempo      float64
		Bars       int
		BufferSize int
		// Position is the transport position in quarter notes where the
		// rendering starts.
		Position               float64
		Numerator, Denominator int
	}

	// Note is an event at an absolute frame of the rendering.
	Note struct {
		Frame int64
		beat.Event
	}

	Rendering struct {
		Options
		Notes  []Note
		Frames int64 // length of the rendering; the final note-offs are at this frame
		Alerts []player.Alert
	}

	offlineContext struct {
		transport player.Transport
	}
)

var ErrInvalidOptions = errors.New("invalid render options")

// DefaultOptions renders 4 bars at 120 BPM and 44100 Hz.
func DefaultOptions() Options {
	return Options{
		SampleRate:  player.DefaultSampleRate,
		Tempo:       beat.DefaultTempo,
		Bars:        4,
		BufferSize:  512,
		Numerator:   4,
		Denominator: 4,
	}
}

func (o Options) validate() error {
	switch {
	case !(o.SampleRate > 0):
		return fmt.Errorf("%w: sample rate %v", ErrInvalidOptions, o.SampleRate)
	case !(o.Tempo > 0):
		return fmt.Errorf("%w: tempo %v", ErrInvalidOptions, o.Tempo)
	case o.Bars < 1:
		return fmt.Errorf("%w: %d bars", ErrInvalidOptions, o.Bars)
	case o.BufferSize < 1:
		return fmt.Errorf("%w: buffer size %d", ErrInvalidOptions, o.BufferSize)
	case o.Numerator < 1 || o.Denominator < 1:
		return fmt.Errorf("%w: time signature %d/%d", ErrInvalidOptions, o.Numerator, o.Denominator)
	}
	return nil
}

// QuartersPerBar returns the length of a bar in quarter notes.
func (o Options) QuartersPerBar() float64 {
	return float64(o.Numerator) * 4 / float64(o.Denominator)
}

// FramesPerQuarter returns the length of a quarter note in frames.
func (o Options) FramesPerQuarter() float64 {
	return o.SampleRate * 60 / o.Tempo
}

func (c *offlineContext) Transport() player.Transport         { return c.transport }
func (c *offlineContext) NextControl() (player.Control, bool) { return player.Control{}, false }

// Render plays the preset for opts.Bars bars and stops the transport at the
// end, so that the rendering ends with a note-off for every lane.
func Render(preset params.Preset, opts Options) (*Rendering, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	broker := player.NewBroker()
	p := player.NewPlayer(broker)
	broker.ToPlayer <- preset.Changes()
	ret := &Rendering{Options: opts}
	ret.Frames = int64(math.Round(float64(opts.Bars) * opts.QuartersPerBar() * opts.FramesPerQuarter()))
	context := &offlineContext{transport: player.Transport{
		SampleRate:    opts.SampleRate,
		Tempo:         opts.Tempo,
		Playing:       true,
		PositionValid: true,
		Numerator:     opts.Numerator,
		Denominator:   opts.Denominator,
	}}
	for frame := int64(0); frame < ret.Frames; {
		n := min(int64(opts.BufferSize), ret.Frames-frame)
		context.transport.Position = opts.Position + float64(frame)/opts.FramesPerQuarter()
		for _, e := range p.Process(int(n), context) {
			ret.Notes = append(ret.Notes, Note{Frame: frame + int64(e.Frame), Event: e.Event})
		}
		ret.drain(broker)
		frame += n
	}
	context.transport.Playing = false
	for _, e := range p.Process(1, context) {
		ret.Notes = append(ret.Notes, Note{Frame: ret.Frames, Event: e.Event})
	}
	ret.drain(broker)
	return ret, nil
}

func (r *Rendering) drain(broker *player.Broker) {
	for {
		select {
		case msg := <-broker.ToModel:
			if a, ok := msg.Data.(player.Alert); ok {
				r.Alerts = append(r.Alerts, a)
			}
		default:
			return
		}
	}
}

// NoteOns returns the note-ons of a lane.
func (r *Rendering) NoteOns(lane int) []Note {
	var ret []Note
	for _, n := range r.Notes {
		if n.On && n.Lane == lane {
			ret = append(ret, n)
		}
	}
	return ret
}
