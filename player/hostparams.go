package player

import "github.com/ableplugs/beat/params"

// HostParams keeps the parameter values of a plugin host in step with a
// player. The host writes the values at any time; before each buffer, Queue
// turns the values that changed into parameter writes, and after it, Update
// shows the values the player ended up with, e.g. the selected lane through
// the active parameters or a reset back to 0.
type HostParams struct {
	values   [params.NumIDs]*float32
	last     [params.NumIDs]float32
	snapshot *Snapshot
}

// NewHostParams sets the host values, indexed by parameter ID, to the current
// values of the player.
func NewHostParams(p *Player, values [params.NumIDs]*float32) *HostParams {
	h := &HostParams{values: values}
	h.show(p.Snapshot())
	return h
}

// Queue is called on the audio thread before Process.
func (h *HostParams) Queue(p *Player) {
	for i, v := range h.values {
		if *v != h.last[i] {
			h.last[i] = *v
			p.QueueChange(params.Change{ID: params.ID(i), Value: float64(*v)})
		}
	}
}

// Update is called on the audio thread after Process.
func (h *HostParams) Update(p *Player) {
	if s := p.Snapshot(); s != h.snapshot {
		h.show(s)
	}
}

func (h *HostParams) show(s *Snapshot) {
	h.snapshot = s
	for i, v := range h.values {
		*v = float32(s.Value(params.ID(i)))
		h.last[i] = *v
	}
}
