package render

import (
	"github.com/ableplugs/beat"
	"github.com/viterin/vek/vek32"
)

type (
	// Stats summarizes the timing of the note-ons of a rendering.
	Stats struct {
		Lanes [beat.NumLanes]LaneStats
		// OnsetSpacing is the mean distance, in frames, between consecutive
		// note-ons of any lane. Simultaneous note-ons count once.
		OnsetSpacing float32
	}

	LaneStats struct {
		NoteOns int
		// Spacing of consecutive note-ons, in frames. Zero with fewer than two
		// note-ons.
		MeanSpacing, MinSpacing, MaxSpacing float32
	}
)

func (r *Rendering) Stats() Stats {
	var ret Stats
	var spacings []float32
	for lane := range ret.Lanes {
		ons := r.NoteOns(lane)
		ret.Lanes[lane].NoteOns = len(ons)
		if len(ons) < 2 {
			continue
		}
		spacings = spacings[:0]
		for i := 1; i < len(ons); i++ {
			spacings = append(spacings, float32(ons[i].Frame-ons[i-1].Frame))
		}
		ret.Lanes[lane].MeanSpacing = vek32.Mean(spacings)
		ret.Lanes[lane].MinSpacing = vek32.Min(spacings)
		ret.Lanes[lane].MaxSpacing = vek32.Max(spacings)
	}
	// distinct frames of note-ons, in order
	var frames []float32
	for _, n := range r.Notes {
		if !n.On {
			continue
		}
		if f := float32(n.Frame); len(frames) == 0 || frames[len(frames)-1] != f {
			frames = append(frames, f)
		}
	}
	if len(frames) >= 2 {
		diffs := vek32.Sub(frames[1:], frames[:len(frames)-1])
		ret.OnsetSpacing = vek32.Mean(diffs)
	}
	return ret
}
