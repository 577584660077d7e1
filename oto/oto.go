// Package oto uses the audio device as the sample clock of the standalone
// player: the device pulls silent float32 frames, and every pull advances the
// player by the same number of frames.
package oto

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

type (
	// OtoContext is an open audio device.
	OtoContext struct {
		context    *oto.Context
		sampleRate int
	}

	// Clock is a running stream of the audio device. The callback is called
	// on the audio thread with the number of frames the device consumed.
	Clock struct {
		player *oto.Player
		stream *stream
	}

	stream struct {
		callback func(frames int)
		partial  int // bytes of a frame read but not yet counted
	}
)

const (
	channelCount   = 2
	bytesPerFrame  = channelCount * 4
	otoBufferDelay = 20 * time.Millisecond
)

// NewContext opens the default audio device at the given sample rate.
func NewContext(sampleRate int) (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context, sampleRate: sampleRate}, nil
}

func (c *OtoContext) SampleRate() int { return c.sampleRate }

// Start starts a silent stream whose pulls drive the callback.
func (c *OtoContext) Start(callback func(frames int)) *Clock {
	s := &stream{callback: callback}
	p := c.context.NewPlayer(s)
	p.Play()
	return &Clock{player: p, stream: s}
}

// Read fills buf with silence. A frame split over two reads is counted when
// its last byte is read.
func (s *stream) Read(buf []byte) (int, error) {
	clear(buf)
	total := s.partial + len(buf)
	frames := total / bytesPerFrame
	s.partial = total % bytesPerFrame
	if frames > 0 {
		s.callback(frames)
	}
	return len(buf), nil
}

// Err returns the error of the device, if any.
func (c *Clock) Err() error {
	return c.player.Err()
}

// Close stops the stream.
func (c *Clock) Close() error {
	if err := c.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
