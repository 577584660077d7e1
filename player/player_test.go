package player_test

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/ableplugs/beat"
	"github.com/ableplugs/beat/params"
	"github.com/ableplugs/beat/player"
)

type fakeContext struct {
	transport player.Transport
	controls  []player.Control
}

func (c *fakeContext) Transport() player.Transport { return c.transport }

func (c *fakeContext) NextControl() (player.Control, bool) {
	if len(c.controls) == 0 {
		return player.Control{}, false
	}
	ret := c.controls[0]
	c.controls = c.controls[1:]
	return ret, true
}

func playing(position float64) *fakeContext {
	return &fakeContext{transport: player.Transport{
		SampleRate:    44100,
		Tempo:         120,
		Playing:       true,
		Position:      position,
		PositionValid: true,
	}}
}

func laneChanges(lane int, p beat.LaneParams) []params.Change {
	var ret []params.Change
	for param := beat.Param(0); param < beat.NumParams; param++ {
		ret = append(ret, params.Change{
			ID:    params.LaneParamID(lane, param),
			Value: params.LaneRange(param).Normalize(p.Get(param)),
		})
	}
	return ret
}

func newPlayer(t *testing.T, lanes map[int]beat.LaneParams) (*player.Player, *player.Broker) {
	t.Helper()
	broker := player.NewBroker()
	p := player.NewPlayer(broker)
	for lane, lp := range lanes {
		broker.ToPlayer <- laneChanges(lane, lp)
	}
	return p, broker
}

// lastStatus drains the messages sent by the player and returns the last
// status.
func lastStatus(t *testing.T, b *player.Broker) player.Status {
	t.Helper()
	var ret player.Status
	found := false
	for {
		select {
		case msg := <-b.ToModel:
			if msg.HasStatus {
				ret, found = msg.Status, true
			}
		default:
			if !found {
				t.Fatal("player sent no status")
			}
			return ret
		}
	}
}

func noteOnFrames(events []player.TimedEvent) []int {
	var ret []int
	for _, e := range events {
		if e.On {
			ret = append(ret, e.Frame)
		}
	}
	return ret
}

var everyTick = beat.LaneParams{Bars: 1, Loop: 16, Pulses: 16, Octave: 4, Velocity: 100}
var halfNotes = beat.LaneParams{Bars: 1, Loop: 4, Pulses: 2, Octave: 4, Velocity: 100}

func TestSamplesPerTick(t *testing.T) {
	if got := player.SamplesPerTick(44100, 120); got != 918.75 {
		t.Errorf("SamplesPerTick(44100, 120) = %v, want 918.75", got)
	}
	if got := player.SamplesPerTick(48000, 100); got != 1200 {
		t.Errorf("SamplesPerTick(48000, 100) = %v, want 1200", got)
	}
}

func TestTickSpacingConverges(t *testing.T) {
	for _, test := range []struct {
		sampleRate, tempo float64
		frames            int
	}{
		{44100, 120, 512},
		{48000, 133.7, 441},
		{96000, 87, 1024},
		{22050, 300, 64},
	} {
		p, _ := newPlayer(t, map[int]beat.LaneParams{0: everyTick})
		ctx := playing(0)
		ctx.transport.SampleRate, ctx.transport.Tempo = test.sampleRate, test.tempo
		var onsets []int
		for buf := 0; buf < 2000; buf++ {
			for _, f := range noteOnFrames(p.Process(test.frames, ctx)) {
				onsets = append(onsets, buf*test.frames+f)
			}
		}
		if len(onsets) < 100 {
			t.Fatalf("%+v: only %d ticks generated", test, len(onsets))
		}
		got := float64(onsets[len(onsets)-1]-onsets[0]) / float64(len(onsets)-1)
		want := player.SamplesPerTick(test.sampleRate, test.tempo)
		if math.Abs(got-want) > 1 {
			t.Errorf("%+v: average tick spacing %v, want %v", test, got, want)
		}
	}
}

func TestTransportStartResync(t *testing.T) {
	tests := []struct {
		name      string
		position  float64
		numerator int
		want      []int
	}{
		{"TimelineStart", 0, 4, []int{3675}},
		{"OnBar", 4, 4, []int{3675}},
		{"NearBar", 4 - 0.001, 4, []int{3675}},
		{"MidTick", 4 + 0.5/beat.TicksPerQuarter, 4, []int{3215}},
		{"MidBar", 4.5, 4, []int{0, 7350}},
		{"NearBarThreeFour", 3 - 0.005, 3, []int{3675}},
		{"NotNearBarFourFour", 3 - 0.005, 4, []int{3785}},
		{"NoSignature", 4 - 0.001, 0, []int{3675}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, _ := newPlayer(t, map[int]beat.LaneParams{0: halfNotes})
			ctx := playing(test.position)
			ctx.transport.Numerator = test.numerator
			if test.numerator > 0 {
				ctx.transport.Denominator = 4
			}
			got := noteOnFrames(p.Process(8192, ctx))
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("note-ons at frames %v, want %v", got, test.want)
			}
		})
	}
}

func TestTransportStopPurges(t *testing.T) {
	p, broker := newPlayer(t, map[int]beat.LaneParams{0: everyTick})
	ctx := playing(0)
	p.Process(4096, ctx)
	ctx.transport.Playing = false
	events := p.Process(512, ctx)
	if len(events) != beat.NumLanes {
		t.Fatalf("stop produced %d events, want %d", len(events), beat.NumLanes)
	}
	for i, e := range events {
		if e.On || e.Frame != 0 || e.Lane != i {
			t.Errorf("stop event %d = %+v, want a note-off at frame 0", i, e)
		}
	}
	tick := lastStatus(t, broker).Tick
	for i := 0; i < 10; i++ {
		if events := p.Process(512, ctx); len(events) != 0 {
			t.Fatalf("stopped player produced %v", events)
		}
	}
	if st := lastStatus(t, broker); st.Playing || st.Tick != tick {
		t.Errorf("stopped player status = %+v, want tick frozen at %d", st, tick)
	}
}

func TestSelectionAppliedFirst(t *testing.T) {
	p, broker := newPlayer(t, nil)
	broker.ToPlayer <- []params.Change{
		{ID: params.ActiveParamID(beat.VelocityParam), Value: 1},
		{ID: params.SelectID, Value: params.Range{Min: 1, Max: beat.NumLanes}.Normalize(3)},
	}
	p.Process(256, playing(0))
	preset := p.Snapshot().Preset()
	if preset.Lanes[2].Loud != 127 || preset.Lanes[0].Loud != 0 {
		t.Errorf("loudness of lanes 1 and 3 = %d and %d, want 0 and 127", preset.Lanes[0].Loud, preset.Lanes[2].Loud)
	}
	if st := lastStatus(t, broker); st.Selected != 3 {
		t.Errorf("selected lane = %d, want 3", st.Selected)
	}
}

func TestQueueChange(t *testing.T) {
	p, _ := newPlayer(t, nil)
	p.QueueChange(params.Change{ID: params.ActiveParamID(beat.LoopParam), Value: 0})
	p.QueueChange(params.Change{ID: params.SelectID, Value: 1})
	p.Process(256, playing(0))
	s := p.Snapshot()
	if got := s.Value(params.LaneParamID(7, beat.LoopParam)); got != 0 {
		t.Errorf("loop of lane 8 = %v, want 0", got)
	}
	if got := s.Value(params.ActiveParamID(beat.LoopParam)); got != 0 {
		t.Errorf("active loop = %v, want the loop of lane 8", got)
	}
	want := params.LaneRange(beat.LoopParam).Normalize(16)
	if got := s.Value(params.LaneParamID(0, beat.LoopParam)); got != want {
		t.Errorf("loop of lane 1 = %v, want %v", got, want)
	}
	if got := s.Value(params.SelectID); got != 1 {
		t.Errorf("select = %v, want 1", got)
	}
	p.QueueChange(params.Change{ID: params.ResetID, Value: 1})
	p.Process(256, playing(0))
	if got := p.Snapshot().Value(params.ResetID); got != 0 {
		t.Errorf("reset reads %v after triggering, want 0", got)
	}
}

func TestControlChanges(t *testing.T) {
	p, broker := newPlayer(t, nil)
	ctx := playing(0)
	ctx.controls = []player.Control{
		{Channel: 0, Controller: 26, Value: 127}, // loudness of the selected lane
		{Channel: 0, Controller: 27, Value: 127}, // select lane 8
		{Channel: 5, Controller: 27, Value: 0},   // unbound
	}
	p.Process(256, ctx)
	if got := p.Snapshot().Preset().Lanes[7].Loud; got != 127 {
		t.Errorf("loudness of lane 8 = %d, want 127", got)
	}
	if st := lastStatus(t, broker); st.Selected != 8 {
		t.Errorf("selected lane = %d, want 8", st.Selected)
	}
	m := &player.CCMap{}
	if err := m.Bind(player.Binding{Channel: 6, Controller: 27, ID: params.MuteID}); err != nil {
		t.Fatal(err)
	}
	broker.ToPlayer <- m
	ctx.controls = []player.Control{{Channel: 5, Controller: 27, Value: 100}}
	p.Process(256, ctx)
	if st := lastStatus(t, broker); !st.Muted {
		t.Error("control change through the new map did not mute the player")
	}
}

func TestResetMsg(t *testing.T) {
	p, broker := newPlayer(t, map[int]beat.LaneParams{0: everyTick, 3: halfNotes})
	ctx := playing(0)
	p.Process(4096, ctx)
	broker.ToPlayer <- player.ResetMsg{}
	events := p.Process(64, ctx)
	if len(events) != beat.NumLanes {
		t.Fatalf("reset produced %d events, want %d note-offs", len(events), beat.NumLanes)
	}
	for _, e := range events {
		if e.On || e.Frame != 0 {
			t.Errorf("unexpected event %+v after reset", e)
		}
	}
	if got, want := p.Snapshot().Preset(), params.DefaultPreset(); got.Lanes[0] != want.Lanes[0] || got.Lanes[3] != want.Lanes[3] {
		t.Errorf("lanes after reset = %+v, want defaults", got.Lanes)
	}
	if events := p.Process(8192, ctx); len(events) != 0 {
		t.Errorf("player produced %d events after reset, want silence", len(events))
	}
}

func TestStateMsg(t *testing.T) {
	want := params.NewBank()
	for _, c := range laneChanges(5, halfNotes) {
		want.Apply(nil, c)
	}
	want.Apply(nil, params.Change{ID: params.LaneSoloID(5), Value: 1})
	p, _ := newPlayer(t, nil)
	p.Process(64, playing(0))
	before := p.Snapshot()
	p.Process(0, &fakeContext{}) // nothing queued
	if p.Snapshot() != before {
		t.Error("snapshot was republished without changes")
	}
	broker := player.NewBroker()
	p = player.NewPlayer(broker)
	broker.ToPlayer <- player.StateMsg(want.State(nil))
	got := noteOnFrames(p.Process(8192, playing(0)))
	if len(got) != 1 || got[0] != 3675 {
		t.Errorf("restored state played note-ons at %v, want [3675]", got)
	}
	if p.Snapshot().Preset().Lanes[5] != want.Preset().Lanes[5] {
		t.Errorf("restored lane 6 = %+v, want %+v", p.Snapshot().Preset().Lanes[5], want.Preset().Lanes[5])
	}
}

func TestOffsetsNonDecreasing(t *testing.T) {
	lanes := map[int]beat.LaneParams{}
	for i := 0; i < beat.NumLanes; i++ {
		lanes[i] = beat.LaneParams{Bars: 1 + i%3, Loop: 3 + 4*i, Pulses: 1 + i, Rotate: i, Octave: 3, NoteIndex: i, Velocity: 90}
	}
	p, _ := newPlayer(t, lanes)
	ctx := playing(1.25)
	sizes := []int{1, 17, 128, 441, 1024, 3, 4096}
	tempos := []float64{120, 240, 61, 999, 30}
	for i := 0; i < 500; i++ {
		n := sizes[i%len(sizes)]
		ctx.transport.Tempo = tempos[i%len(tempos)]
		events := p.Process(n, ctx)
		for j, e := range events {
			if e.Frame < 0 || e.Frame >= n {
				t.Fatalf("buffer %d: event frame %d outside 0..%d", i, e.Frame, n-1)
			}
			if j > 0 && e.Frame < events[j-1].Frame {
				t.Fatalf("buffer %d: frames decrease from %d to %d", i, events[j-1].Frame, e.Frame)
			}
		}
	}
}

func TestTempoFallback(t *testing.T) {
	p, broker := newPlayer(t, map[int]beat.LaneParams{0: halfNotes})
	ctx := playing(0)
	ctx.transport.Tempo = 0
	if got := noteOnFrames(p.Process(8192, ctx)); len(got) != 1 || got[0] != 3675 {
		t.Errorf("note-ons without tempo at %v, want [3675]", got)
	}
	alerted := false
	for {
		msg, ok := player.TimeoutReceive(broker.ToModel, time.Millisecond)
		if !ok {
			break
		}
		if a, ok := msg.Data.(player.Alert); ok && a.Name == "Tempo" && a.Priority == player.Warning {
			alerted = true
		}
		if msg.HasStatus && msg.Status.Tempo != beat.DefaultTempo {
			t.Errorf("status tempo = %v, want %v", msg.Status.Tempo, beat.DefaultTempo)
		}
	}
	if !alerted {
		t.Error("no tempo warning was sent")
	}
}

func TestSampleRateFallback(t *testing.T) {
	p, broker := newPlayer(t, map[int]beat.LaneParams{0: halfNotes})
	ctx := playing(0)
	ctx.transport.SampleRate = 0
	if got := noteOnFrames(p.Process(8192, ctx)); len(got) != 1 || got[0] != 3675 {
		t.Errorf("note-ons without sample rate at %v, want [3675]", got)
	}
	p.Process(8192, ctx)
	alerts := 0
	for {
		msg, ok := player.TimeoutReceive(broker.ToModel, time.Millisecond)
		if !ok {
			break
		}
		if a, ok := msg.Data.(player.Alert); ok && a.Name == "SampleRate" && a.Priority == player.Warning {
			alerts++
		}
	}
	if alerts != 1 {
		t.Errorf("%d sample rate warnings were sent, want 1", alerts)
	}
}

func TestLaneActivity(t *testing.T) {
	p, broker := newPlayer(t, map[int]beat.LaneParams{2: everyTick})
	ctx := playing(0)
	p.Process(1024, ctx)
	active := lastStatus(t, broker).LaneActivity
	if active[2] <= 0 || active[2] > 100.0/127 {
		t.Errorf("activity of lane 3 = %v, want in (0, %v]", active[2], 100.0/127)
	}
	if active[0] != 0 {
		t.Errorf("activity of silent lane 1 = %v, want 0", active[0])
	}
	ctx.transport.Playing = false
	for i := 0; i < 100; i++ {
		p.Process(1024, ctx)
	}
	if got := lastStatus(t, broker).LaneActivity[2]; got >= active[2]/100 {
		t.Errorf("activity of lane 3 did not decay, got %v", got)
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	lanes := map[int]beat.LaneParams{}
	for i := 0; i < beat.NumLanes; i++ {
		lanes[i] = everyTick
	}
	p, _ := newPlayer(t, lanes)
	ctx := playing(0)
	p.Process(512, ctx)
	allocs := testing.AllocsPerRun(1000, func() {
		p.Process(512, ctx)
	})
	if allocs != 0 {
		t.Errorf("Process allocated %v times per run", allocs)
	}
}
