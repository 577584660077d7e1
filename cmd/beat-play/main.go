package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"sync/atomic"
	"time"

	"github.com/ableplugs/beat/cmd"
	"github.com/ableplugs/beat/config"
	"github.com/ableplugs/beat/oto"
	"github.com/ableplugs/beat/player"
	"github.com/ableplugs/beat/version"
)

var (
	configFile  = flag.String("config", "", "read the configuration from `file` instead of the user config directory")
	midiOutput  = flag.String("midi-output", "", "send notes to the MIDI output matching device name prefix")
	midiVirtual = flag.String("midi-virtual", "", "name of the virtual MIDI output created when no output is given")
	midiInput   = flag.String("midi-input", "", "read control changes from the MIDI input matching device name prefix")
	channel     = flag.Int("channel", 0, "MIDI channel 1..16 of the notes")
	tempo       = flag.Float64("tempo", 0, "tempo in BPM")
	sampleRate  = flag.Int("samplerate", 0, "sample rate of the audio device clock")
	saveFile    = flag.String("save", "", "write the preset to `file` when quitting")
	listOutputs = flag.Bool("list", false, "list the MIDI outputs and quit")
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to `file`")
	versionFlag = flag.Bool("v", false, "print version")
)

// playContext is a transport that starts at the beginning of the timeline and
// plays until stopped.
type playContext struct {
	sampleRate, tempo float64
	playing           atomic.Bool
	midi              cmd.MIDIContext
}

func (c *playContext) Transport() player.Transport {
	return player.Transport{SampleRate: c.sampleRate, Tempo: c.tempo, Playing: c.playing.Load(), PositionValid: true}
}

func (c *playContext) NextControl() (player.Control, bool) { return c.midi.NextControl() }

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	conf, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}
	midiContext := cmd.NewMIDIContext()
	defer midiContext.Close()
	if *listOutputs {
		outs, err := midiContext.Outputs()
		if err != nil {
			log.Fatal(err)
		}
		for _, o := range outs {
			fmt.Println(o)
		}
		return
	}
	if err := midiContext.SetChannel(conf.MIDI.Channel); err != nil {
		log.Fatal(err)
	}
	if err := cmd.OpenMIDIOutput(midiContext, conf.MIDI.Output, conf.MIDI.Virtual); err != nil {
		log.Printf("notes are not sent anywhere: %v", err)
	}
	if conf.MIDI.Input != "" {
		if err := midiContext.OpenInput(conf.MIDI.Input); err != nil {
			log.Printf("failed to open MIDI input '%s': %v", conf.MIDI.Input, err)
		}
	}
	ccMap, err := conf.CCMap()
	if err != nil {
		log.Fatal(err)
	}
	preset, err := conf.ReadPreset()
	if err != nil {
		log.Fatal(err)
	}
	if a := flag.Args(); len(a) > 0 {
		conf.Preset = a[0]
		if preset, err = conf.ReadPreset(); err != nil {
			log.Fatal(err)
		}
	}
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	audioContext, err := oto.NewContext(conf.Audio.SampleRate)
	if err != nil {
		log.Fatal(err)
	}
	broker := player.NewBroker()
	p := player.NewPlayer(broker)
	broker.ToPlayer <- ccMap
	broker.ToPlayer <- preset.Changes()
	context := &playContext{
		sampleRate: float64(audioContext.SampleRate()),
		tempo:      conf.Audio.Tempo,
		midi:       midiContext,
	}
	context.playing.Store(true)
	sendErrors := make(chan error, 1)
	clock := audioContext.Start(func(frames int) {
		if err := midiContext.Send(p.Process(frames, context)); err != nil {
			player.TrySend(sendErrors, err)
		}
	})
	log.Printf("playing at %v BPM", conf.Audio.Tempo)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	statusTicker := time.NewTicker(2 * time.Second)
	defer statusTicker.Stop()
	var status player.Status
loop:
	for {
		select {
		case msg := <-broker.ToModel:
			if msg.HasStatus {
				status = msg.Status
			}
			if alert, ok := msg.Data.(player.Alert); ok {
				log.Printf("%v: %s", alert.Priority, alert.Message)
			}
		case err := <-sendErrors:
			log.Printf("MIDI: %v", err)
		case <-statusTicker.C:
			logStatus(status)
		case <-interrupt:
			break loop
		}
	}
	// stopping the transport sends the note-offs of the sounding notes
	context.playing.Store(false)
	for {
		msg, ok := player.TimeoutReceive(broker.ToModel, time.Second)
		if !ok || (msg.HasStatus && !msg.Status.Playing) {
			break
		}
	}
	if err := clock.Close(); err != nil {
		log.Print(err)
	}
	if *saveFile != "" {
		if err := save(p, *saveFile); err != nil {
			log.Print(err)
		}
	}
}

func loadConfig() (config.Config, error) {
	var conf config.Config
	var err error
	if *configFile != "" {
		conf, err = config.LoadFile(*configFile)
	} else {
		conf, err = config.Load()
	}
	if err != nil {
		return conf, err
	}
	if isFlagPassed("midi-output") {
		conf.MIDI.Output = *midiOutput
	}
	if isFlagPassed("midi-virtual") {
		conf.MIDI.Virtual = *midiVirtual
	}
	if isFlagPassed("midi-input") {
		conf.MIDI.Input = *midiInput
	}
	if isFlagPassed("channel") {
		conf.MIDI.Channel = *channel
	}
	if isFlagPassed("tempo") {
		conf.Audio.Tempo = *tempo
	}
	if isFlagPassed("samplerate") {
		conf.Audio.SampleRate = *sampleRate
	}
	return conf, conf.Validate()
}

func logStatus(s player.Status) {
	activity := make([]byte, len(s.LaneActivity))
	for i, a := range s.LaneActivity {
		activity[i] = " .:*#"[min(int(a*5), 4)]
	}
	log.Printf("tick %d, lane %d selected, activity [%s]", s.Tick, s.Selected, activity)
}

func save(p *player.Player, filename string) error {
	b, err := p.Snapshot().Preset().Marshal()
	if err != nil {
		return fmt.Errorf("could not marshal preset: %v", err)
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %v", filename, err)
	}
	return nil
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Beat plays Euclidean rhythms to a MIDI output, clocked by the audio device.\nUsage: %s [flags] [preset.yml]\n", os.Args[0])
	flag.PrintDefaults()
}
