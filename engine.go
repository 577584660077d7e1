package beat

// Engine fans the clock ticks out to NumLanes lanes and applies the global,
// per-lane mute and solo gating. An Engine is not safe for concurrent use: it
// is owned by the audio thread, and all writes to it are expected to be
// applied before the ticks of the same processing buffer.
type Engine struct {
	lanes    [NumLanes]Lane
	selected int // zero-based
	muted    bool
	laneMute [NumLanes]bool
	laneSolo [NumLanes]bool
	anySolo  bool
}

// NewEngine returns an engine with all lanes at their default parameters.
func NewEngine() *Engine {
	e := &Engine{}
	e.Reset()
	return e
}

// Reset restores every lane to its default parameters and clears the
// selection, the global mute and all lane mute and solo flags. It does not
// emit note-offs; flush with PurgeAll first if notes may be sounding.
func (e *Engine) Reset() {
	for i := range e.lanes {
		e.lanes[i].init(i)
	}
	e.selected = 0
	e.muted = false
	e.laneMute = [NumLanes]bool{}
	e.laneSolo = [NumLanes]bool{}
	e.anySolo = false
}

// Lane returns the lane at the zero-based index i, or nil if i is out of
// range.
func (e *Engine) Lane(i int) *Lane {
	if i < 0 || i >= NumLanes {
		return nil
	}
	return &e.lanes[i]
}

// SelectLane selects the lane subsequent SetBeatParam calls are routed to.
// The one-based index is clamped to 1..NumLanes.
func (e *Engine) SelectLane(oneBased int) {
	e.selected = clamp(oneBased, 1, NumLanes) - 1
}

// SelectedLane returns the one-based index of the selected lane.
func (e *Engine) SelectedLane() int { return e.selected + 1 }

// SetBeatParam sets a parameter of the selected lane.
func (e *Engine) SetBeatParam(param Param, value int) bool {
	return e.lanes[e.selected].SetParam(param, value)
}

// SetLaneParam sets a parameter of the lane at the zero-based index lane.
func (e *Engine) SetLaneParam(lane int, param Param, value int) bool {
	if lane < 0 || lane >= NumLanes {
		return false
	}
	return e.lanes[lane].SetParam(param, value)
}

func (e *Engine) SetLaneMute(lane int, muted bool) {
	if lane < 0 || lane >= NumLanes {
		return
	}
	e.laneMute[lane] = muted
}

func (e *Engine) SetLaneSolo(lane int, solo bool) {
	if lane < 0 || lane >= NumLanes {
		return
	}
	e.laneSolo[lane] = solo
	e.anySolo = false
	for _, s := range e.laneSolo {
		if s {
			e.anySolo = true
			break
		}
	}
}

func (e *Engine) LaneMuted(lane int) bool  { return lane >= 0 && lane < NumLanes && e.laneMute[lane] }
func (e *Engine) LaneSoloed(lane int) bool { return lane >= 0 && lane < NumLanes && e.laneSolo[lane] }
func (e *Engine) AnySolo() bool            { return e.anySolo }

// SetMuted sets the global mute. A globally muted engine is frozen: its lanes
// are not ticked at all, so no note-offs are flushed either.
func (e *Engine) SetMuted(muted bool) { e.muted = muted }
func (e *Engine) Muted() bool         { return e.muted }

// ProcessTick ticks every lane once, appending the produced events to out.
// With any lane soloed, every lane that is not soloed is gated mute.
func (e *Engine) ProcessTick(globalTick int64, out []Event) []Event {
	if e.muted {
		return out
	}
	for i := range e.lanes {
		soloGate := e.anySolo && !e.laneSolo[i]
		e.lanes[i].SetExternalMute(e.laneMute[i] || soloGate)
		out = e.lanes[i].Tick(globalTick, out)
	}
	return out
}

// PurgeAll appends one note-off per lane for the lane's current pitch,
// regardless of whether the lane is sounding, so that no note is left hanging
// when the transport stops.
func (e *Engine) PurgeAll(out []Event) []Event {
	for i := range e.lanes {
		out = append(out, e.lanes[i].PurgeEvent())
	}
	return out
}

// Locate aligns all lanes to the timeline, lastTick being the last tick
// already processed; the next call to ProcessTick is expected with
// lastTick+1.
func (e *Engine) Locate(lastTick int64) {
	for i := range e.lanes {
		e.lanes[i].Locate(lastTick)
	}
}
