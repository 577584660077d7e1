package player

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/ableplugs/beat"
	"github.com/ableplugs/beat/params"
	"github.com/viterin/vek/vek32"
)

type (
	// Player drives the beat engine from the audio callback. Once per buffer,
	// it applies the queued parameter writes, converts the elapsed samples into
	// clock ticks at the host tempo and collects the produced events with
	// their sample offsets. The player is owned by the audio thread; the other
	// threads talk to it through the Broker and read its parameters through
	// Snapshot.
	Player struct {
		engine *beat.Engine
		bank   *params.Bank
		ccMap  *CCMap

		playing   bool
		tick      int64   // last processed tick
		remainder float64 // samples elapsed since the last tick
		tempo     float64
		activity  [beat.NumLanes]float32

		pending  []params.Change
		tickBuf  []beat.Event
		events   []TimedEvent
		changed  bool
		warnings warningFlags

		snapshot atomic.Pointer[Snapshot]
		broker   *Broker
	}

	// ProcessContext is given to the player when processing a buffer. It tells
	// the transport state of the host and the MIDI control changes received
	// during the buffer.
	ProcessContext interface {
		Transport() Transport
		NextControl() (c Control, ok bool)
	}

	// Transport is the host playback state for one buffer.
	Transport struct {
		SampleRate float64
		Tempo      float64 // BPM; zero or negative if unknown
		Playing    bool
		// Position is the musical position of the first sample of the
		// buffer in quarter notes. It is only used when PositionValid.
		Position      float64
		PositionValid bool
		// Time signature; zero values default to 4/4.
		Numerator, Denominator int
	}

	// Control is a MIDI control change. Channel is zero-based.
	Control struct {
		Frame      int
		Channel    byte
		Controller byte
		Value      byte
	}

	// TimedEvent is an event with its frame offset in the current buffer.
	TimedEvent struct {
		Frame int
		beat.Event
	}

	// Snapshot is an immutable copy of the parameter values, published by the
	// player whenever they change.
	Snapshot struct {
		State []float64 // in params.StateOrder
	}

	warningFlags int
)

const (
	DefaultSampleRate = 44100.0

	// activityDecay is the time constant, in samples, of the lane activity
	// decay.
	activityDecay = 15000

	// snapTolerance is how close, in quarter notes, a start position must be to
	// a bar line to be snapped to it.
	snapTolerance = 1.0 / 96

	pendingCapacity = 1024
	eventCapacity   = 1024
)

const (
	warnedTempo warningFlags = 1 << iota
	warnedSampleRate
)

func NewPlayer(broker *Broker) *Player {
	p := &Player{
		engine:  beat.NewEngine(),
		bank:    params.NewBank(),
		ccMap:   DefaultCCMap(),
		pending: make([]params.Change, 0, pendingCapacity),
		tickBuf: make([]beat.Event, 0, 2*beat.NumLanes),
		events:  make([]TimedEvent, 0, eventCapacity),
		tempo:   beat.DefaultTempo,
		broker:  broker,
	}
	p.publish()
	return p
}

// SamplesPerTick returns the length of a clock tick in samples.
func SamplesPerTick(sampleRate, tempo float64) float64 {
	return sampleRate * 60 / (tempo * beat.TicksPerQuarter)
}

// Process advances the player by a buffer of the given number of frames. The
// returned events are in non-decreasing frame order; the slice is reused by
// the next call to Process.
func (p *Player) Process(frames int, context ProcessContext) []TimedEvent {
	p.events = p.events[:0]
	p.processMessages()
	for c, ok := context.NextControl(); ok; c, ok = context.NextControl() {
		if change, ok := p.ccMap.Lookup(c); ok {
			p.pending = append(p.pending, change)
		}
	}
	p.applyPending()

	t := context.Transport()
	sampleRate := t.SampleRate
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		sampleRate = DefaultSampleRate
		if p.warnings&warnedSampleRate == 0 {
			p.warnings |= warnedSampleRate
			p.SendAlert("SampleRate", fmt.Sprintf("host did not report a sample rate, assuming %v Hz", DefaultSampleRate), Warning)
		}
	}
	p.tempo = t.Tempo
	if !(p.tempo > 0) || math.IsInf(p.tempo, 0) {
		p.tempo = beat.DefaultTempo
		if p.warnings&warnedTempo == 0 {
			p.warnings |= warnedTempo
			p.SendAlert("Tempo", fmt.Sprintf("host did not report a tempo, assuming %v BPM", beat.DefaultTempo), Warning)
		}
	}
	samplesPerTick := SamplesPerTick(sampleRate, p.tempo)

	if frames <= 0 {
		p.send(nil)
		return p.events
	}
	if !t.Playing {
		if p.playing {
			p.purge()
		}
		p.playing = false
		p.remainder = 0
		p.decay(frames)
		p.send(nil)
		return p.events
	}
	if !p.playing {
		p.resync(t, samplesPerTick)
		p.playing = true
	}

	n := float64(frames)
	cursor := 0.0
	untilTick := samplesPerTick - p.remainder
	for cursor+untilTick <= n {
		frame := int(math.Max(0, math.Min(cursor+untilTick, n-1)))
		cursor += untilTick
		p.remainder = 0
		p.tick++
		p.tickBuf = p.engine.ProcessTick(p.tick, p.tickBuf[:0])
		for _, e := range p.tickBuf {
			if e.On {
				p.activity[e.Lane] = float32(e.Velocity) / beat.MaxVelocity
			}
			p.events = append(p.events, TimedEvent{Frame: frame, Event: e})
		}
		untilTick = samplesPerTick
	}
	p.remainder += n - cursor
	p.decay(frames)
	p.send(nil)
	return p.events
}

// resync aligns the tick counter and the lanes to the host position when the
// transport starts.
func (p *Player) resync(t Transport, samplesPerTick float64) {
	pos := 0.0
	if t.PositionValid && !math.IsNaN(t.Position) && !math.IsInf(t.Position, 0) {
		pos = t.Position
	}
	num, den := t.Numerator, t.Denominator
	if num <= 0 || den <= 0 {
		num, den = 4, 4
	}
	quartersPerBar := float64(num) * 4 / float64(den)
	if bar := math.Round(pos/quartersPerBar) * quartersPerBar; math.Abs(pos-bar) < snapTolerance {
		pos = bar
	}
	ticks := pos * beat.TicksPerQuarter
	whole := math.Floor(ticks)
	if frac := ticks - whole; frac == 0 {
		// the tick at the position is due on the first sample
		p.tick = int64(whole) - 1
		p.remainder = samplesPerTick
	} else {
		p.tick = int64(whole)
		p.remainder = frac * samplesPerTick
	}
	p.engine.Locate(p.tick)
}

// purge appends a note-off for every lane at frame 0.
func (p *Player) purge() {
	p.tickBuf = p.engine.PurgeAll(p.tickBuf[:0])
	for _, e := range p.tickBuf {
		p.events = append(p.events, TimedEvent{Frame: 0, Event: e})
	}
}

func (p *Player) reset() {
	p.purge()
	p.bank.Reset(p.engine)
	p.remainder = 0
	p.tick = 0
	p.activity = [beat.NumLanes]float32{}
	p.changed = true
}

func (p *Player) processMessages() {
loop:
	for {
		select {
		case msg := <-p.broker.ToPlayer:
			switch m := msg.(type) {
			case params.Change:
				p.pending = append(p.pending, m)
			case []params.Change:
				p.pending = append(p.pending, m...)
			case StateMsg:
				order := params.StateOrder()
				for i, v := range m {
					if i >= len(order) {
						break
					}
					p.pending = append(p.pending, params.Change{ID: order[i], Value: v})
				}
			case ResetMsg:
				p.pending = append(p.pending, params.Change{ID: params.ResetID, Value: 1})
			case *CCMap:
				if m != nil {
					p.ccMap = m
				}
			default:
				// ignore unknown messages
			}
		default:
			break loop
		}
	}
}

// applyPending applies the queued writes, lane selections first so that a
// selection and a write to the selected lane in the same buffer are applied
// in that order.
func (p *Player) applyPending() {
	if len(p.pending) == 0 {
		return
	}
	for _, c := range p.pending {
		if c.ID == params.SelectID {
			p.bank.Apply(p.engine, c)
		}
	}
	for _, c := range p.pending {
		if c.ID == params.SelectID {
			continue
		}
		if p.bank.Apply(p.engine, c) {
			p.reset()
		}
	}
	p.pending = p.pending[:0]
	p.changed = true
	p.publish()
}

func (p *Player) decay(frames int) {
	alpha := float32(math.Exp(-float64(frames) / activityDecay))
	vek32.MulNumber_Inplace(p.activity[:], alpha)
}

func (p *Player) publish() {
	if !p.changed && p.snapshot.Load() != nil {
		return
	}
	p.snapshot.Store(&Snapshot{State: p.bank.State(make([]float64, 0, params.NumStateValues))})
	p.changed = false
}

// Snapshot returns the latest published parameter values. It is safe to call
// from any goroutine.
func (p *Player) Snapshot() *Snapshot {
	return p.snapshot.Load()
}

// QueueChange queues a parameter write for the next Process. Like Process, it
// must only be called from the audio thread.
func (p *Player) QueueChange(c params.Change) {
	p.pending = append(p.pending, c)
}

// Value returns the normalized value of a parameter in the snapshot. Active
// parameters read the selected lane; Reset and unknown IDs read 0.
func (s *Snapshot) Value(id params.ID) float64 {
	if info := id.Info(); info.Kind == params.KindActiveParam {
		i, _ := params.StateIndex(params.SelectID)
		lane := params.SelectID.Info().Range.Plain(s.State[i]) - 1
		id = params.LaneParamID(lane, info.Param)
	}
	i, ok := params.StateIndex(id)
	if !ok || i >= len(s.State) {
		return 0
	}
	return s.State[i]
}

// Preset converts the snapshot into a preset.
func (s *Snapshot) Preset() params.Preset {
	b := params.NewBank()
	b.SetState(nil, s.State)
	return b.Preset()
}

func (p *Player) SendAlert(name, message string, priority AlertPriority) {
	p.send(Alert{Name: name, Priority: priority, Message: message})
}

// all sends from the player are non-blocking, so that the audio thread can
// never dead-lock on a slow reader
func (p *Player) send(message any) {
	TrySend(p.broker.ToModel, MsgToModel{
		HasStatus: true,
		Status: Status{
			Playing:      p.playing,
			Muted:        p.engine.Muted(),
			Tick:         p.tick,
			Tempo:        p.tempo,
			Selected:     p.engine.SelectedLane(),
			LaneActivity: p.activity,
		},
		Data: message,
	})
}
