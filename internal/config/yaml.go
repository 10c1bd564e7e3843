// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	applog "synthscope/internal/log"
)

// searchPaths are tried in order when LoadConfig is given no path.
var searchPaths = []string{
	"synthscope.yaml",
	"synthscope.yml",
	"synthscope.toml",
	"config.yaml",
}

// LoadConfig loads configuration from the YAML or TOML file at path (chosen by
// extension). If path is empty the search paths are tried and, when none
// exist, the built-in defaults are used. Environment overrides are applied
// after loading and the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range searchPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			} else if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to stat config file %q: %w", candidate, err)
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("Config: Loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error, fatal", c.LogLevel)
	}

	a := c.Audio
	if a.Backend != BackendPortAudio && a.Backend != BackendBeep {
		return fmt.Errorf("audio.backend %q must be %q or %q", a.Backend, BackendPortAudio, BackendBeep)
	}
	if a.OutputDevice < MinDeviceID {
		return fmt.Errorf("audio.output_device must be >= %d, got %d", MinDeviceID, a.OutputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in [%d, %d], got %g", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be in (0, %d], got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.OutputChannels < 1 || a.OutputChannels > MaxChannels {
		return fmt.Errorf("audio.output_channels must be 1 or 2, got %d", a.OutputChannels)
	}

	s := c.Synth
	if s.Voices < 1 || s.Voices > MaxVoices {
		return fmt.Errorf("synth.voices must be in [1, %d], got %d", MaxVoices, s.Voices)
	}
	if s.Gain < 0 {
		return fmt.Errorf("synth.gain must not be negative, got %g", s.Gain)
	}
	if s.Sound != SoundSine && s.Sound != SoundSampler {
		return fmt.Errorf("synth.sound %q must be %q or %q", s.Sound, SoundSine, SoundSampler)
	}
	if s.Sound == SoundSampler && s.Sampler.Path == "" {
		return fmt.Errorf("synth.sound is %q but synth.sampler.path is empty", SoundSampler)
	}
	if s.Sampler.RootNote < 0 || s.Sampler.RootNote > 127 {
		return fmt.Errorf("synth.sampler.root_note must be in [0, 127], got %d", s.Sampler.RootNote)
	}
	if s.Sampler.Attack < 0 || s.Sampler.Release < 0 {
		return fmt.Errorf("synth.sampler attack and release must not be negative")
	}
	if s.Sampler.MaxLength <= 0 {
		return fmt.Errorf("synth.sampler.max_length must be positive, got %g", s.Sampler.MaxLength)
	}

	an := c.Analyzer
	if an.FFTOrder < MinFFTOrder || an.FFTOrder > MaxFFTOrder {
		return fmt.Errorf("analyzer.fft_order must be in [%d, %d], got %d", MinFFTOrder, MaxFFTOrder, an.FFTOrder)
	}
	if an.ScopeSize <= 0 {
		return fmt.Errorf("analyzer.scope_size must be positive, got %d", an.ScopeSize)
	}
	if an.RefreshHz <= 0 {
		return fmt.Errorf("analyzer.refresh_hz must be positive, got %g", an.RefreshHz)
	}
	if an.MinDB >= an.MaxDB {
		return fmt.Errorf("analyzer.min_db (%g) must be below analyzer.max_db (%g)", an.MinDB, an.MaxDB)
	}

	d := c.Display
	if d.WaveformGain < 0 {
		return fmt.Errorf("display.waveform_gain must not be negative, got %g", d.WaveformGain)
	}
	if d.HistoryLength <= 0 || d.SamplesPerBlock <= 0 {
		return fmt.Errorf("display.history_length and display.samples_per_block must be positive")
	}

	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
	}

	t := c.Transport
	if t.UDPEnabled && !strings.Contains(t.UDPTargetAddress, ":") {
		return fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", t.UDPTargetAddress)
	}
	if t.WSEnabled && !strings.Contains(t.WSAddress, ":") {
		return fmt.Errorf("transport.websocket_address %q appears invalid (missing port?)", t.WSAddress)
	}

	return nil
}

// applyEnvOverrides lets ENV_* variables replace file values. Unparseable
// values are logged and ignored.
func (c *Config) applyEnvOverrides() {
	str := func(key string, dst *string) {
		if val, ok := os.LookupEnv(key); ok {
			*dst = val
			applog.Infof("Config: Overriding from %s: %s", key, val)
		}
	}
	boolean := func(key string, dst *bool) {
		if val, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				applog.Warnf("Config: Ignoring %s=%q: %v", key, val, err)
				return
			}
			*dst = b
			applog.Infof("Config: Overriding from %s: %v", key, b)
		}
	}
	integer := func(key string, dst *int) {
		if val, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				applog.Warnf("Config: Ignoring %s=%q: %v", key, val, err)
				return
			}
			*dst = n
			applog.Infof("Config: Overriding from %s: %d", key, n)
		}
	}
	float := func(key string, dst *float64) {
		if val, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				applog.Warnf("Config: Ignoring %s=%q: %v", key, val, err)
				return
			}
			*dst = f
			applog.Infof("Config: Overriding from %s: %g", key, f)
		}
	}

	str("ENV_LOG_LEVEL", &c.LogLevel)

	str("ENV_AUDIO_BACKEND", &c.Audio.Backend)
	integer("ENV_OUTPUT_DEVICE", &c.Audio.OutputDevice)
	float("ENV_SAMPLE_RATE", &c.Audio.SampleRate)

	str("ENV_SYNTH_SOUND", &c.Synth.Sound)
	str("ENV_SAMPLE_PATH", &c.Synth.Sampler.Path)

	boolean("ENV_RECORDING_ENABLED", &c.Recording.Enabled)

	boolean("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	str("ENV_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	boolean("ENV_WS_ENABLED", &c.Transport.WSEnabled)
	str("ENV_WS_ADDRESS", &c.Transport.WSAddress)
}
