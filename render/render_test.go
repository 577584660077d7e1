package render_test

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/ableplugs/beat/params"
	"github.com/ableplugs/beat/render"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func halfNotePreset() params.Preset {
	p := params.DefaultPreset()
	p.Lanes[0] = params.LanePreset{Bars: 1, Loop: 4, Beats: 2, Octave: 4, Loud: 100}
	return p
}

func TestRender(t *testing.T) {
	r, err := render.Render(halfNotePreset(), render.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if r.Frames != 352800 {
		t.Errorf("rendering is %d frames, want 352800", r.Frames)
	}
	ons := r.NoteOns(0)
	if len(ons) != 48 {
		t.Fatalf("lane 1 has %d note-ons, want 48", len(ons))
	}
	for i, n := range ons {
		want := float64(4+8*i) * 918.75
		if math.Abs(float64(n.Frame)-want) > 1 || n.Note != 60 || n.Velocity != 100 {
			t.Errorf("note-on %d = %+v, want note 60 at frame %v", i, n, want)
		}
	}
	for lane := 1; lane < 8; lane++ {
		if got := len(r.NoteOns(lane)); got != 0 {
			t.Errorf("silent lane %d has %d note-ons", lane+1, got)
		}
	}
	var ends int
	for _, n := range r.Notes {
		if n.Frame == r.Frames && !n.On {
			ends++
		}
	}
	if ends != 8 {
		t.Errorf("rendering ends with %d note-offs, want 8", ends)
	}
	if len(r.Alerts) != 0 {
		t.Errorf("unexpected alerts %v", r.Alerts)
	}
}

func TestRenderInvalidOptions(t *testing.T) {
	for _, modify := range []func(*render.Options){
		func(o *render.Options) { o.Tempo = 0 },
		func(o *render.Options) { o.SampleRate = -1 },
		func(o *render.Options) { o.Bars = 0 },
		func(o *render.Options) { o.BufferSize = 0 },
		func(o *render.Options) { o.Denominator = 0 },
	} {
		opts := render.DefaultOptions()
		modify(&opts)
		if _, err := render.Render(params.DefaultPreset(), opts); !errors.Is(err, render.ErrInvalidOptions) {
			t.Errorf("Render(%+v) error = %v, want ErrInvalidOptions", opts, err)
		}
	}
}

func TestStats(t *testing.T) {
	r, err := render.Render(halfNotePreset(), render.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	stats := r.Stats()
	lane := stats.Lanes[0]
	if lane.NoteOns != 48 {
		t.Errorf("NoteOns = %d, want 48", lane.NoteOns)
	}
	if math.Abs(float64(lane.MeanSpacing)-7350) > 1 || lane.MinSpacing < 7349 || lane.MaxSpacing > 7351 {
		t.Errorf("lane spacing = %+v, want 7350", lane)
	}
	if math.Abs(float64(stats.OnsetSpacing)-7350) > 1 {
		t.Errorf("OnsetSpacing = %v, want 7350", stats.OnsetSpacing)
	}
	if stats.Lanes[1] != (render.LaneStats{}) {
		t.Errorf("silent lane stats = %+v", stats.Lanes[1])
	}
}

func TestWriteSMF(t *testing.T) {
	r, err := render.Render(halfNotePreset(), render.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := r.WriteSMF(&buf, 10); err != nil {
		t.Fatal(err)
	}
	s, err := smf.ReadFrom(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Tracks) != 2 {
		t.Fatalf("file has %d tracks, want tempo track and one lane", len(s.Tracks))
	}
	if tc := s.TempoChanges(); len(tc) == 0 || tc[0].BPM != 120 {
		t.Errorf("tempo changes = %v, want 120 BPM", tc)
	}
	var ons, offs int
	var tick uint32
	for _, ev := range s.Tracks[1] {
		tick += ev.Delta
		var ch, key, vel uint8
		switch msg := midi.Message(ev.Message); {
		case msg.GetNoteOn(&ch, &key, &vel):
			if ch != 9 || key != 60 || vel != 100 {
				t.Errorf("note-on channel %d key %d velocity %d", ch, key, vel)
			}
			if want := uint32((4 + 8*ons) * render.TicksPerQuarter / 24); tick != want {
				t.Errorf("note-on %d at tick %d, want %d", ons, tick, want)
			}
			ons++
		case msg.GetNoteOff(&ch, &key, &vel):
			offs++
		}
	}
	if ons != 48 || offs != 48 {
		t.Errorf("lane track has %d note-ons and %d note-offs, want 48 and 48", ons, offs)
	}
	if err := r.WriteSMF(&buf, 0); err == nil {
		t.Error("WriteSMF accepted channel 0")
	}
}
