package player

import (
	"time"

	"github.com/ableplugs/beat"
)

type (
	// Broker connects the player, which runs on the audio thread, with the
	// rest of the program. Communication is one channel per recipient. The
	// player never blocks on the broker: everything it sends goes through
	// TrySend and is dropped if the recipient is not keeping up.
	//
	// ToPlayer accepts params.Change, []params.Change, StateMsg, ResetMsg and
	// *CCMap values; anything else is ignored. The messages are applied at the
	// start of the next processed buffer.
	Broker struct {
		ToModel  chan MsgToModel
		ToPlayer chan any
	}

	// MsgToModel is a message sent by the player. The status sent after every
	// buffer is not boxed to avoid allocations; the infrequent messages
	// (Alert) are passed in Data.
	MsgToModel struct {
		HasStatus bool
		Status    Status

		Data any
	}

	// Status is a snapshot of the player state at the end of a buffer.
	Status struct {
		Playing      bool
		Muted        bool
		Tick         int64   // last processed tick
		Tempo        float64 // tempo used for the buffer, in BPM
		Selected     int     // one-based
		LaneActivity [beat.NumLanes]float32
	}

	// Alert is a notification from the player to be shown to the user.
	Alert struct {
		Name     string
		Priority AlertPriority
		Message  string
	}

	AlertPriority int

	// StateMsg asks the player to apply persisted parameter values, in
	// declaration order.
	StateMsg []float64

	// ResetMsg asks the player to flush all notes and restore the defaults.
	ResetMsg struct{}
)

const (
	Info AlertPriority = iota
	Warning
	Error
)

func (p AlertPriority) String() string {
	switch p {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

func NewBroker() *Broker {
	return &Broker{
		ToModel:  make(chan MsgToModel, 1024),
		ToPlayer: make(chan any, 1024),
	}
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
