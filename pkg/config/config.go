// Package config holds the relay configuration: listen addresses, the
// virtual device and screen capture settings, and injectable dependencies.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPointerAddr is where the pointer endpoint listens if nothing else is configured.
const DefaultPointerAddr = "0.0.0.0:1701"

// ScreenAddr is the fixed address of the screen streaming endpoint.
const ScreenAddr = "0.0.0.0:9002"

// DefaultMaxMessageSize is the default read limit for a single inbound message.
const DefaultMaxMessageSize = 32768

// Config is the complete relay configuration.
type Config struct {
	PointerAddr    string        `yaml:"pointer_addr"`
	ScreenAddr     string        `yaml:"-"`
	MetricsAddr    string        `yaml:"metrics_addr"`
	TranscriptFile string        `yaml:"transcript_file"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	Verbose        bool          `yaml:"verbose"`
	Device         DeviceConfig  `yaml:"device"`
	Capture        CaptureConfig `yaml:"capture"`

	Deps *Dependencies `yaml:"-"`
}

// DeviceKind selects which virtual input device backs the pointer endpoint.
type DeviceKind string

const (
	DeviceTablet DeviceKind = "tablet"
	DeviceMouse  DeviceKind = "mouse"
)

// DeviceConfig configures the virtual input device.
type DeviceConfig struct {
	Kind DeviceKind `yaml:"kind"`
	Name string     `yaml:"name"`
	Path string     `yaml:"path"`
}

// CaptureConfig configures the screen capture.
type CaptureConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`
	Display string `yaml:"display"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	FPS     int    `yaml:"fps"`
	Quality int    `yaml:"quality"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		PointerAddr:    DefaultPointerAddr,
		ScreenAddr:     ScreenAddr,
		MaxMessageSize: DefaultMaxMessageSize,
		Device: DeviceConfig{
			Kind: DeviceTablet,
			Name: "tabletrelay virtual tablet",
			Path: "/dev/uinput",
		},
		Capture: CaptureConfig{
			FFmpeg:  "ffmpeg",
			Display: ":0",
			Width:   1920,
			Height:  1080,
			FPS:     10,
			Quality: 5,
		},
	}
}

// Load reads a YAML file and applies it on top of Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the top-level fields and both sub-configs.
func (c *Config) Validate() []error {
	var errors []error

	if err := validateAddr(c.PointerAddr); err != nil {
		errors = append(errors, fmt.Errorf("pointer address: %s", err))
	}
	if err := validateAddr(c.ScreenAddr); err != nil {
		errors = append(errors, fmt.Errorf("screen address: %s", err))
	}
	if c.MetricsAddr != "" {
		if err := validateAddr(c.MetricsAddr); err != nil {
			errors = append(errors, fmt.Errorf("metrics address: %s", err))
		}
	}
	if c.MaxMessageSize <= 0 {
		errors = append(errors, fmt.Errorf("max message size must be positive, got %d", c.MaxMessageSize))
	}

	return append(errors, Validate(&c.Device, &c.Capture)...)
}

// Validate ...
func (d *DeviceConfig) Validate() []error {
	var errors []error

	switch d.Kind {
	case DeviceTablet, DeviceMouse:
	default:
		errors = append(errors, fmt.Errorf("device kind must be %q or %q, got %q", DeviceTablet, DeviceMouse, d.Kind))
	}

	if d.Name == "" {
		errors = append(errors, fmt.Errorf("device name must not be empty"))
	}
	// uinput_user_dev.name is 80 bytes including the terminating NUL
	if len(d.Name) >= 80 {
		errors = append(errors, fmt.Errorf("device name must be shorter than 80 bytes"))
	}
	if d.Path == "" {
		errors = append(errors, fmt.Errorf("device path must not be empty"))
	}

	return errors
}

// Validate ...
func (c *CaptureConfig) Validate() []error {
	var errors []error

	if c.FFmpeg == "" {
		errors = append(errors, fmt.Errorf("ffmpeg binary must not be empty"))
	}
	if c.Width < 1 || c.Height < 1 {
		errors = append(errors, fmt.Errorf("capture size must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.FPS < 1 || c.FPS > 60 {
		errors = append(errors, fmt.Errorf("capture fps %d not in [1, 60]", c.FPS))
	}
	if c.Quality < 2 || c.Quality > 31 {
		errors = append(errors, fmt.Errorf("capture quality %d not in [2, 31]", c.Quality))
	}

	return errors
}
