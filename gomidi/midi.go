// Package gomidi connects the beat player to real MIDI ports through the
// rtmidi driver of gitlab.com/gomidi/midi/v2. It requires cgo.
package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ableplugs/beat/player"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// RTMIDIContext owns the MIDI driver, the output port the generated notes
	// are sent to and optionally an input port whose control changes are fed
	// to the player.
	RTMIDIContext struct {
		driver     *rtmididrv.Driver
		out        drivers.Out
		in         drivers.In
		stopListen func()
		controls   chan player.Control
		channel    byte
		msg        [3]byte
	}
)

var errNoDriver = errors.New("no MIDI driver available")

// NewContext opens the driver. There's not much we can do if this fails, so
// the context is still returned and opening ports reports the error.
func NewContext() *RTMIDIContext {
	m := RTMIDIContext{controls: make(chan player.Control, 1024)}
	m.driver, _ = rtmididrv.New()
	return &m
}

// SetChannel sets the one-based MIDI channel the notes are sent on.
func (c *RTMIDIContext) SetChannel(channel int) error {
	if channel < 1 || channel > 16 {
		return fmt.Errorf("MIDI channel %d is outside 1..16", channel)
	}
	c.channel = byte(channel - 1)
	return nil
}

// Outputs lists the names of the available output ports.
func (c *RTMIDIContext) Outputs() ([]string, error) {
	if c.driver == nil {
		return nil, errNoDriver
	}
	outs, err := c.driver.Outs()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI outputs failed: %w", err)
	}
	ret := make([]string, 0, len(outs))
	for _, o := range outs {
		ret = append(ret, o.String())
	}
	return ret, nil
}

// OpenOutput opens the first output port whose name starts with namePrefix,
// closing the currently open output if necessary.
func (c *RTMIDIContext) OpenOutput(namePrefix string) error {
	if c.driver == nil {
		return errNoDriver
	}
	outs, err := c.driver.Outs()
	if err != nil {
		return fmt.Errorf("listing MIDI outputs failed: %w", err)
	}
	for _, o := range outs {
		if strings.HasPrefix(o.String(), namePrefix) {
			if err := o.Open(); err != nil {
				return fmt.Errorf("opening MIDI output %q failed: %w", o.String(), err)
			}
			c.closeOutput()
			c.out = o
			return nil
		}
	}
	return fmt.Errorf("could not find a MIDI output starting with %q", namePrefix)
}

// OpenVirtualOutput creates a virtual output port other programs can connect to.
func (c *RTMIDIContext) OpenVirtualOutput(name string) error {
	if c.driver == nil {
		return errNoDriver
	}
	o, err := c.driver.OpenVirtualOut(name)
	if err != nil {
		return fmt.Errorf("opening virtual MIDI output %q failed: %w", name, err)
	}
	c.closeOutput()
	c.out = o
	return nil
}

// OpenInput starts listening to the control changes of the first input port
// whose name starts with namePrefix.
func (c *RTMIDIContext) OpenInput(namePrefix string) error {
	if c.driver == nil {
		return errNoDriver
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return fmt.Errorf("listing MIDI inputs failed: %w", err)
	}
	for _, in := range ins {
		if !strings.HasPrefix(in.String(), namePrefix) {
			continue
		}
		if err := in.Open(); err != nil {
			return fmt.Errorf("opening MIDI input %q failed: %w", in.String(), err)
		}
		stop, err := midi.ListenTo(in, c.HandleMessage)
		if err != nil {
			in.Close()
			return fmt.Errorf("listening to MIDI input %q failed: %w", in.String(), err)
		}
		c.closeInput()
		c.in, c.stopListen = in, stop
		return nil
	}
	return fmt.Errorf("could not find a MIDI input starting with %q", namePrefix)
}

// HandleMessage queues the control changes of the input for the player.
func (c *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	var channel, controller, value uint8
	if !msg.GetControlChange(&channel, &controller, &value) {
		return
	}
	// if the channel is full, just drop the message
	player.TrySend(c.controls, player.Control{Channel: channel, Controller: controller, Value: value})
}

// NextControl returns the next queued control change, without blocking.
func (c *RTMIDIContext) NextControl() (player.Control, bool) {
	select {
	case ctrl := <-c.controls:
		return ctrl, true
	default:
		return player.Control{}, false
	}
}

// Send writes the events to the output port. Ports are real time, so the
// frame offsets of the events are not used. Send does not allocate.
func (c *RTMIDIContext) Send(events []player.TimedEvent) error {
	if c.out == nil {
		return nil
	}
	for _, e := range events {
		if e.On {
			c.msg = [3]byte{0x90 | c.channel, e.Note & 0x7f, e.Velocity & 0x7f}
		} else {
			c.msg = [3]byte{0x80 | c.channel, e.Note & 0x7f, 0}
		}
		if err := c.out.Send(c.msg[:]); err != nil {
			return fmt.Errorf("sending MIDI failed: %w", err)
		}
	}
	return nil
}

func (c *RTMIDIContext) closeOutput() {
	if c.out != nil && c.out.IsOpen() {
		c.out.Close()
	}
	c.out = nil
}

func (c *RTMIDIContext) closeInput() {
	if c.stopListen != nil {
		c.stopListen()
		c.stopListen = nil
	}
	if c.in != nil && c.in.IsOpen() {
		c.in.Close()
	}
	c.in = nil
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.closeInput()
	c.closeOutput()
	c.driver.Close()
}
