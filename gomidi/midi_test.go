package gomidi

import (
	"bytes"
	"testing"

	"github.com/ableplugs/beat"
	"github.com/ableplugs/beat/player"
	"gitlab.com/gomidi/midi/v2"
)

type fakeOut struct {
	sent [][]byte
}

func (o *fakeOut) Open() error             { return nil }
func (o *fakeOut) Close() error            { return nil }
func (o *fakeOut) IsOpen() bool            { return true }
func (o *fakeOut) Number() int             { return 0 }
func (o *fakeOut) String() string          { return "fake" }
func (o *fakeOut) Underlying() interface{} { return nil }
func (o *fakeOut) Send(data []byte) error {
	o.sent = append(o.sent, append([]byte(nil), data...))
	return nil
}

func TestSend(t *testing.T) {
	out := &fakeOut{}
	c := &RTMIDIContext{out: out}
	if err := c.SetChannel(10); err != nil {
		t.Fatal(err)
	}
	err := c.Send([]player.TimedEvent{
		{Frame: 3, Event: beat.Event{Lane: 0, On: true, Note: 36, Velocity: 100}},
		{Frame: 9, Event: beat.Event{Lane: 0, On: false, Note: 36}},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]byte{{0x99, 36, 100}, {0x89, 36, 0}}
	if len(out.sent) != len(want) {
		t.Fatalf("sent %d messages, want %d", len(out.sent), len(want))
	}
	for i := range want {
		if !bytes.Equal(out.sent[i], want[i]) {
			t.Errorf("message %d = % x, want % x", i, out.sent[i], want[i])
		}
	}
	if err := c.SetChannel(17); err == nil {
		t.Error("SetChannel accepted channel 17")
	}
}

func TestHandleMessage(t *testing.T) {
	c := &RTMIDIContext{controls: make(chan player.Control, 4)}
	c.HandleMessage(midi.NoteOn(0, 60, 100), 0)
	c.HandleMessage(midi.ControlChange(2, 21, 64), 0)
	ctrl, ok := c.NextControl()
	if !ok || ctrl != (player.Control{Channel: 2, Controller: 21, Value: 64}) {
		t.Errorf("NextControl = %+v, %v", ctrl, ok)
	}
	if _, ok := c.NextControl(); ok {
		t.Error("note-on was queued as a control change")
	}
}
