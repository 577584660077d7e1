//go:build cgo

package cmd

import (
	"github.com/ableplugs/beat/gomidi"
)

func NewMIDIContext() MIDIContext {
	return gomidi.NewContext()
}
