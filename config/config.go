// Package config reads the configuration of the beat commands from
// config.yml in the user config directory, on top of the built-in defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ableplugs/beat/params"
	"github.com/ableplugs/beat/player"
	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		MIDI     MIDIConfig
		Audio    AudioConfig
		Preset   string    `yaml:",omitempty"` // path of the preset loaded at start
		Controls []Control `yaml:",omitempty"`
	}

	MIDIConfig struct {
		// Output is the prefix of the output port name. When empty, a virtual
		// port named Virtual is created instead.
		Output  string `yaml:",omitempty"`
		Virtual string
		Channel int
		// Input is the prefix of the port name whose control changes are
		// mapped through Controls. When empty, no input is opened.
		Input string `yaml:",omitempty"`
	}

	AudioConfig struct {
		SampleRate int `yaml:"samplerate"`
		Tempo      float64
	}

	// Control binds a MIDI controller to a parameter. Lane is one-based; 0
	// addresses the selected lane or a global parameter.
	Control struct {
		Channel    int
		Controller int
		Lane       int `yaml:",omitempty"`
		Param      string
	}
)

// Dir is the directory under the user config directory.
const Dir = "Beat"

const fileName = "config.yml"

//go:embed config.yml
var defaultConfigYaml []byte

func Default() Config {
	var c Config
	if err := yaml.Unmarshal(defaultConfigYaml, &c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

// Path returns the path of the user configuration file.
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, Dir, fileName), nil
}

// Load reads the user configuration file. A missing file is not an error;
// the defaults are returned.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the configuration file at path on top of the defaults.
func LoadFile(path string) (Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("could not read config: %w", err)
	}
	if err := c.Unmarshal(b); err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Unmarshal decodes YAML on top of the current values and validates the
// result. A controls list in the YAML replaces the current one.
func (c *Config) Unmarshal(b []byte) error {
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("could not parse config: %w", err)
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.MIDI.Channel < 1 || c.MIDI.Channel > 16 {
		return fmt.Errorf("MIDI channel %d is outside 1..16", c.MIDI.Channel)
	}
	if c.MIDI.Output == "" && c.MIDI.Virtual == "" {
		return errors.New("either a MIDI output or a virtual port name is needed")
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", c.Audio.SampleRate)
	}
	if !(c.Audio.Tempo > 0) {
		return fmt.Errorf("invalid tempo %v", c.Audio.Tempo)
	}
	_, err := c.CCMap()
	return err
}

// CCMap builds the controller map of the configured controls.
func (c *Config) CCMap() (*player.CCMap, error) {
	m := &player.CCMap{}
	for i, ctrl := range c.Controls {
		id, err := params.Parse(ctrl.Lane, ctrl.Param)
		if err != nil {
			return nil, fmt.Errorf("control %d: %w", i+1, err)
		}
		if err := m.Bind(player.Binding{Channel: ctrl.Channel, Controller: ctrl.Controller, ID: id}); err != nil {
			return nil, fmt.Errorf("control %d: %w", i+1, err)
		}
	}
	return m, nil
}

// ReadPreset reads the configured preset file, or returns the default preset
// if none is configured.
func (c *Config) ReadPreset() (params.Preset, error) {
	if c.Preset == "" {
		return params.DefaultPreset(), nil
	}
	b, err := os.ReadFile(c.Preset)
	if err != nil {
		return params.Preset{}, fmt.Errorf("could not read preset: %w", err)
	}
	return params.ParsePreset(b)
}
