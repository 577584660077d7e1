package render

import (
	"fmt"
	"io"
	"math"

	"github.com/ableplugs/beat"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TicksPerQuarter is the time resolution of the exported MIDI files.
const TicksPerQuarter = 960

// SMF converts the rendering into a Standard MIDI File: a tempo track followed
// by one track per lane that produced notes. channel is one-based.
func (r *Rendering) SMF(channel int) (*smf.SMF, error) {
	if channel < 1 || channel > 16 {
		return nil, fmt.Errorf("MIDI channel %d is outside 1..16", channel)
	}
	ch := uint8(channel - 1)
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)
	var track0 smf.Track
	track0.Add(0, smf.MetaMeter(uint8(r.Numerator), uint8(r.Denominator)))
	track0.Add(0, smf.MetaTempo(r.Tempo))
	track0.Close(r.tick(r.Frames))
	if err := s.Add(track0); err != nil {
		return nil, fmt.Errorf("error adding tempo track: %w", err)
	}
	for lane := 0; lane < beat.NumLanes; lane++ {
		var track smf.Track
		var last uint32
		played := false
		for _, n := range r.Notes {
			if n.Lane != lane {
				continue
			}
			if n.On {
				played = true
			}
			tick := r.tick(n.Frame)
			if n.On {
				track.Add(tick-last, midi.NoteOn(ch, n.Note, n.Velocity))
			} else {
				track.Add(tick-last, midi.NoteOff(ch, n.Note))
			}
			last = tick
		}
		if !played {
			continue
		}
		track.Close(r.tick(r.Frames) - last)
		if err := s.Add(track); err != nil {
			return nil, fmt.Errorf("error adding track of lane %d: %w", lane+1, err)
		}
	}
	return s, nil
}

// WriteSMF writes the rendering as a Standard MIDI File.
func (r *Rendering) WriteSMF(w io.Writer, channel int) error {
	s, err := r.SMF(channel)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}

// tick converts a frame of the rendering into a MIDI file tick.
func (r *Rendering) tick(frame int64) uint32 {
	return uint32(math.Round(float64(frame) / r.FramesPerQuarter() * TicksPerQuarter))
}
