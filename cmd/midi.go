// Package cmd holds what the beat commands share.
package cmd

import (
	"errors"

	"github.com/ableplugs/beat/player"
)

// MIDIContext is where the commands send the generated notes and where the
// control changes of an input port come from.
type MIDIContext interface {
	SetChannel(channel int) error
	Outputs() ([]string, error)
	OpenOutput(namePrefix string) error
	OpenVirtualOutput(name string) error
	OpenInput(namePrefix string) error
	NextControl() (player.Control, bool)
	Send(events []player.TimedEvent) error
	Close()
}

// NullMIDIContext drops all notes and never has controls. It is used when the
// binary is built without cgo.
type NullMIDIContext struct{}

var ErrNoMIDI = errors.New("MIDI is not available in this build")

func (NullMIDIContext) SetChannel(int) error                { return nil }
func (NullMIDIContext) Outputs() ([]string, error)          { return nil, ErrNoMIDI }
func (NullMIDIContext) OpenOutput(string) error             { return ErrNoMIDI }
func (NullMIDIContext) OpenVirtualOutput(string) error      { return ErrNoMIDI }
func (NullMIDIContext) OpenInput(string) error              { return ErrNoMIDI }
func (NullMIDIContext) NextControl() (player.Control, bool) { return player.Control{}, false }
func (NullMIDIContext) Send([]player.TimedEvent) error      { return nil }
func (NullMIDIContext) Close()                              {}

// OpenMIDIOutput opens the output port starting with namePrefix, or a virtual
// port called virtual when namePrefix is empty.
func OpenMIDIOutput(m MIDIContext, namePrefix, virtual string) error {
	if namePrefix != "" {
		return m.OpenOutput(namePrefix)
	}
	return m.OpenVirtualOutput(virtual)
}
