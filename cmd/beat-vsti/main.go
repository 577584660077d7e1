//go:build plugin

package main

import (
	"log"
	"strconv"

	"github.com/ableplugs/beat/cmd"
	"github.com/ableplugs/beat/config"
	"github.com/ableplugs/beat/params"
	"github.com/ableplugs/beat/player"
	"github.com/viterin/vek/vek32"
	"pipelined.dev/audio/vst2"
)

const (
	pluginName   = "Beat"
	pluginVendor = "ableplugs/beat"

	outputChannels = 2
)

var pluginID = [4]byte{'B', 'e', 'a', 't'}

type VSTIProcessContext struct {
	events     []vst2.MIDIEvent
	eventIndex int
	host       vst2.Host
}

func (c *VSTIProcessContext) NextControl() (control player.Control, ok bool) {
	for c.eventIndex < len(c.events) {
		ev := c.events[c.eventIndex]
		c.eventIndex++
		if ev.Data[0] >= 0xB0 && ev.Data[0] < 0xC0 {
			return player.Control{
				Frame:      int(ev.DeltaFrames),
				Channel:    ev.Data[0] - 0xB0,
				Controller: ev.Data[1] & 0x7f,
				Value:      ev.Data[2] & 0x7f,
			}, true
		}
		// ignore all other MIDI messages
	}
	return player.Control{}, false
}

func (c *VSTIProcessContext) Transport() player.Transport {
	flags := vst2.TempoValid | vst2.PpqPosValid | vst2.TimeSigValid
	timeInfo := c.host.GetTimeInfo(flags)
	if timeInfo == nil {
		return player.Transport{}
	}
	t := player.Transport{
		SampleRate: timeInfo.SampleRate,
		Playing:    timeInfo.Flags&vst2.TransportPlaying != 0,
	}
	if timeInfo.Flags&vst2.TempoValid != 0 {
		t.Tempo = timeInfo.Tempo
	}
	if timeInfo.Flags&vst2.PpqPosValid != 0 {
		t.Position, t.PositionValid = timeInfo.PpqPos, true
	}
	if timeInfo.Flags&vst2.TimeSigValid != 0 {
		t.Numerator, t.Denominator = int(timeInfo.TimeSigNumerator), int(timeInfo.TimeSigDenominator)
	}
	return t
}

// hostParameters declares every parameter ID to the host, in ID order, and
// binds their values to the player.
func hostParameters(p *player.Player) ([]*vst2.Parameter, *player.HostParams) {
	ret := make([]*vst2.Parameter, params.NumIDs)
	var values [params.NumIDs]*float32
	for id := params.ID(0); id < params.ID(params.NumIDs); id++ {
		r := id.Info().Range
		ret[id] = &vst2.Parameter{
			Name: id.String(),
			GetValueLabelFunc: func(value float32) string {
				return strconv.Itoa(r.Plain(float64(value)))
			},
		}
		values[id] = &ret[id].Value
	}
	return ret, player.NewHostParams(p, values)
}

func init() {
	var (
		version = int32(100)
	)
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		conf, err := config.Load()
		if err != nil {
			log.Printf("using the default configuration: %v", err)
		}
		broker := player.NewBroker()
		p := player.NewPlayer(broker)
		if ccMap, err := conf.CCMap(); err == nil {
			broker.ToPlayer <- ccMap
		}
		midiContext := cmd.NewMIDIContext()
		if err := midiContext.SetChannel(conf.MIDI.Channel); err != nil {
			log.Print(err)
		}
		if err := cmd.OpenMIDIOutput(midiContext, conf.MIDI.Output, conf.MIDI.Virtual); err != nil {
			log.Printf("notes are not sent anywhere: %v", err)
		}
		done := make(chan struct{})
		go drain(broker, done)
		context := VSTIProcessContext{host: h}
		parameters, hostParams := hostParameters(p)
		sendFailed := false
		return vst2.Plugin{
				UniqueID:       pluginID,
				Version:        version,
				InputChannels:  0,
				OutputChannels: outputChannels,
				Name:           pluginName,
				Vendor:         pluginVendor,
				Category:       vst2.PluginCategorySynth,
				Flags:          vst2.PluginIsSynth,
				Parameters:     parameters,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					hostParams.Queue(p)
					// the notes go to MIDI; the audio outputs stay silent
					for i := 0; i < outputChannels; i++ {
						vek32.Zeros_Into(out.Channel(i), out.Frames)
					}
					events := p.Process(out.Frames, &context)
					hostParams.Update(p)
					err := midiContext.Send(events)
					if err != nil && !sendFailed {
						p.SendAlert("MIDI", "sending notes failed", player.Error)
					}
					sendFailed = err != nil
					context.events = context.events[:0] // reset buffer, but keep the allocated memory
					context.eventIndex = 0
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent, vst2.PluginCanReceiveTimeInfo:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					for i := 0; i < ev.NumEvents(); i++ {
						a := ev.Event(i)
						switch v := a.(type) {
						case *vst2.MIDIEvent:
							context.events = append(context.events, *v)
						}
					}
				},
				CloseFunc: func() {
					close(done)
					midiContext.Close()
				},
				GetChunkFunc: func(isPreset bool) []byte {
					return params.MarshalState(nil, p.Snapshot().State)
				},
				SetChunkFunc: func(data []byte, isPreset bool) {
					values, err := params.UnmarshalState(data)
					if err != nil {
						log.Printf("restoring plugin state: %v", err)
					}
					player.TrySend(broker.ToPlayer, any(player.StateMsg(values)))
				},
			}
	}
}

// drain logs the alerts of the player until done is closed.
func drain(broker *player.Broker, done <-chan struct{}) {
	for {
		select {
		case msg := <-broker.ToModel:
			if alert, ok := msg.Data.(player.Alert); ok {
				log.Printf("%v: %s", alert.Priority, alert.Message)
			}
		case <-done:
			return
		}
	}
}

func main() {}
