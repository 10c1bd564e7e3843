// SPDX-License-Identifier: MIT
package config

import "time"

// Boundaries and defaults for the synth, analyser and audio host.
const (
	DefaultBackend         = BackendPortAudio
	DefaultOutputDevice    = MinDeviceID // System default output
	DefaultSampleRate      = 44100
	DefaultFramesPerBuffer = 512
	DefaultOutputChannels  = 2
	DefaultLowLatency      = false

	DefaultVoices        = 4 // Per sound, as in the original demo
	DefaultGain          = 1.0
	DefaultSound         = SoundSine
	DefaultVoiceStealing = true
	DefaultRootNote      = 74
	DefaultAttack        = 0.1  // Seconds
	DefaultRelease       = 0.1  // Seconds
	DefaultMaxLength     = 10.0 // Seconds

	DefaultFFTOrder  = 11 // 2048-point transform
	DefaultScopeSize = 512
	DefaultRefreshHz = 30
	DefaultMinDB     = -100.0
	DefaultMaxDB     = 0.0
	DefaultWindow    = "Hann"

	DefaultWaveformGain    = 0.45
	DefaultHistoryLength   = 512
	DefaultSamplesPerBlock = 256

	DefaultBitDepth = 16

	MinDeviceID     = -1
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
	MaxChannels     = 2
	MaxVoices       = 64
	MinFFTOrder     = 4
	MaxFFTOrder     = 16
)

// Audio backends.
const (
	BackendPortAudio = "portaudio"
	BackendBeep      = "beep"
)

// Synth sounds.
const (
	SoundSine    = "sine"
	SoundSampler = "sampler"
)

// Config is the complete runtime configuration. It is built from defaults, an
// optional YAML or TOML file, ENV_* overrides and finally command line flags.
type Config struct {
	LogLevel  string          `yaml:"log_level" toml:"log_level"`
	Command   string          `yaml:"-" toml:"-"` // Set by the CLI, never from a file.
	Audio     AudioConfig     `yaml:"audio" toml:"audio"`
	Synth     SynthConfig     `yaml:"synth" toml:"synth"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer" toml:"analyzer"`
	Display   DisplayConfig   `yaml:"display" toml:"display"`
	Recording RecordingConfig `yaml:"recording" toml:"recording"`
	Transport TransportConfig `yaml:"transport" toml:"transport"`
}

// AudioConfig selects and configures the output host.
type AudioConfig struct {
	Backend         string  `yaml:"backend" toml:"backend"`                     // "portaudio" or "beep".
	OutputDevice    int     `yaml:"output_device" toml:"output_device"`         // PortAudio device index, -1 for default.
	SampleRate      float64 `yaml:"sample_rate" toml:"sample_rate"`             // Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer" toml:"frames_per_buffer"` // Block size handed to the render callback.
	OutputChannels  int     `yaml:"output_channels" toml:"output_channels"`     // 1 or 2.
	LowLatency      bool    `yaml:"low_latency" toml:"low_latency"`             // Request the device's low latency.
}

// SynthConfig configures the voice pool.
type SynthConfig struct {
	Voices        int           `yaml:"voices" toml:"voices"`                 // Voices per sound.
	Gain          float64       `yaml:"gain" toml:"gain"`                     // Master gain after mixing.
	Sound         string        `yaml:"sound" toml:"sound"`                   // "sine" or "sampler".
	VoiceStealing bool          `yaml:"voice_stealing" toml:"voice_stealing"` // Reuse a busy voice when the pool is exhausted.
	Sampler       SamplerConfig `yaml:"sampler" toml:"sampler"`
}

// SamplerConfig describes the sampled sound. An empty Path disables it.
type SamplerConfig struct {
	Path      string  `yaml:"path" toml:"path"`             // WAV file.
	RootNote  int     `yaml:"root_note" toml:"root_note"`   // MIDI note the sample was recorded at.
	Attack    float64 `yaml:"attack" toml:"attack"`         // Seconds.
	Release   float64 `yaml:"release" toml:"release"`       // Seconds.
	MaxLength float64 `yaml:"max_length" toml:"max_length"` // Seconds of the file kept.
}

// AnalyzerConfig configures the spectrum analyser.
type AnalyzerConfig struct {
	FFTOrder  int     `yaml:"fft_order" toml:"fft_order"`   // Transform size is 1 << FFTOrder.
	ScopeSize int     `yaml:"scope_size" toml:"scope_size"` // Points in the display curve.
	RefreshHz float64 `yaml:"refresh_hz" toml:"refresh_hz"` // Curve recompute rate.
	MinDB     float64 `yaml:"min_db" toml:"min_db"`         // Maps to 0.
	MaxDB     float64 `yaml:"max_db" toml:"max_db"`         // Maps to 1.
	Window    string  `yaml:"window" toml:"window"`         // Window function name, e.g. "Hann".
}

// DisplayConfig configures the scrolling waveform.
type DisplayConfig struct {
	WaveformGain    float64 `yaml:"waveform_gain" toml:"waveform_gain"`
	HistoryLength   int     `yaml:"history_length" toml:"history_length"`
	SamplesPerBlock int     `yaml:"samples_per_block" toml:"samples_per_block"`
}

// RecordingConfig holds settings for recording the live output.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	OutputDir string `yaml:"output_dir" toml:"output_dir"`
	BitDepth  int    `yaml:"bit_depth" toml:"bit_depth"` // 16, 24 or 32.
}

// TransportConfig holds settings for publishing analyser frames.
type TransportConfig struct {
	LogFrames        bool   `yaml:"log_frames" toml:"log_frames"`
	UDPEnabled       bool   `yaml:"udp_enabled" toml:"udp_enabled"`
	UDPTargetAddress string `yaml:"udp_target_address" toml:"udp_target_address"`
	WSEnabled        bool   `yaml:"websocket_enabled" toml:"websocket_enabled"`
	WSAddress        string `yaml:"websocket_address" toml:"websocket_address"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Backend:         DefaultBackend,
			OutputDevice:    DefaultOutputDevice,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			OutputChannels:  DefaultOutputChannels,
			LowLatency:      DefaultLowLatency,
		},
		Synth: SynthConfig{
			Voices:        DefaultVoices,
			Gain:          DefaultGain,
			Sound:         DefaultSound,
			VoiceStealing: DefaultVoiceStealing,
			Sampler: SamplerConfig{
				RootNote:  DefaultRootNote,
				Attack:    DefaultAttack,
				Release:   DefaultRelease,
				MaxLength: DefaultMaxLength,
			},
		},
		Analyzer: AnalyzerConfig{
			FFTOrder:  DefaultFFTOrder,
			ScopeSize: DefaultScopeSize,
			RefreshHz: DefaultRefreshHz,
			MinDB:     DefaultMinDB,
			MaxDB:     DefaultMaxDB,
			Window:    DefaultWindow,
		},
		Display: DisplayConfig{
			WaveformGain:    DefaultWaveformGain,
			HistoryLength:   DefaultHistoryLength,
			SamplesPerBlock: DefaultSamplesPerBlock,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			UDPTargetAddress: "127.0.0.1:9090",
			WSAddress:        "127.0.0.1:8080",
		},
	}
}

// FFTSize is the analyser transform length.
func (a AnalyzerConfig) FFTSize() int {
	return 1 << a.FFTOrder
}

// RefreshInterval is the period between curve recomputes.
func (a AnalyzerConfig) RefreshInterval() time.Duration {
	return time.Duration(float64(time.Second) / a.RefreshHz)
}
