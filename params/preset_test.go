package params_test

import (
	"reflect"
	"testing"

	"github.com/ableplugs/beat"
	"github.com/ableplugs/beat/params"
)

const presetYAML = `
select: 2
lanes:
  - loud: 100
    beats: 3
    loop: 8
  - mute: true
    octave: 4
`

func TestParsePreset(t *testing.T) {
	p, err := params.ParsePreset([]byte(presetYAML))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Lanes) != 2 {
		t.Fatalf("preset has %d lanes, want 2", len(p.Lanes))
	}
	want := params.LanePreset{Bars: 4, Loop: 8, Beats: 3, Rotate: 0, NoteIndex: 0, Octave: 2, Loud: 100}
	if p.Lanes[0] != want {
		t.Errorf("lane 1 = %+v, want %+v", p.Lanes[0], want)
	}
	want = params.LanePreset{Bars: 4, Loop: 16, Beats: 4, NoteIndex: 1, Octave: 4, Mute: true}
	if p.Lanes[1] != want {
		t.Errorf("lane 2 = %+v, want %+v", p.Lanes[1], want)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestPresetChanges(t *testing.T) {
	p, err := params.ParsePreset([]byte(presetYAML))
	if err != nil {
		t.Fatal(err)
	}
	changes := p.Changes()
	if changes[0].ID != params.SelectID {
		t.Errorf("first change is %v, want the lane selection", changes[0].ID)
	}
	b := params.NewBank()
	e := beat.NewEngine()
	for _, c := range changes {
		b.Apply(e, c)
	}
	if e.SelectedLane() != 2 || !e.LaneMuted(1) {
		t.Error("selection and lane mute were not applied")
	}
	if got := e.Lane(0).Params(); got.Velocity != 100 || got.Pulses != 3 || got.Loop != 8 {
		t.Errorf("lane 1 params = %+v", got)
	}
	if got, want := e.Lane(5).Params(), beat.DefaultLaneParams(5); got != want {
		t.Errorf("unlisted lane 6 params = %+v, want defaults %+v", got, want)
	}
	got := b.Preset()
	if got.Select != 2 || got.Lanes[0] != p.Lanes[0] || got.Lanes[1] != p.Lanes[1] {
		t.Errorf("bank preset = %+v", got)
	}
}

func TestPresetMarshalRoundTrip(t *testing.T) {
	p := params.DefaultPreset()
	p.Lanes[3].Loud = 64
	p.Lanes[3].Solo = true
	data, err := p.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	got, err := params.ParsePreset(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Errorf("round trip = %+v, want %+v", got, p)
	}
}

func TestPresetValidate(t *testing.T) {
	p := params.DefaultPreset()
	p.Lanes[2].NoteIndex = 12
	if err := p.Validate(); err == nil {
		t.Error("Validate accepted note index 12")
	}
	p = params.DefaultPreset()
	p.Select = 9
	if err := p.Validate(); err == nil {
		t.Error("Validate accepted select 9")
	}
	if _, err := params.ParsePreset([]byte("lanes: [{}, {}, {}, {}, {}, {}, {}, {}, {}]")); err == nil {
		t.Error("ParsePreset accepted 9 lanes")
	}
}
