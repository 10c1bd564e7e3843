// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"synthscope/internal/config"
	applog "synthscope/internal/log"
	"synthscope/pkg/build"
)

// Commands.
const (
	CommandPlay    = "play"
	CommandRender  = "render"
	CommandDevices = "devices"
)

// DefaultTail is rendered after the last event of an offline render.
const DefaultTail = 2 * time.Second

// Invocation is a parsed command line. Command is empty when nothing should
// run, e.g. after --help or --version.
type Invocation struct {
	Config     *config.Config
	ConfigPath string

	// play
	MIDIFile string
	Loop     bool
	Headless bool

	// render
	InputFile  string
	OutputFile string
	Tail       time.Duration

	// devices
	Interactive bool
}

// flagValues receives persistent flags before they are merged over the
// loaded configuration.
type flagValues struct {
	logLevel        string
	verbose         bool
	backend         string
	device          int
	sampleRate      float64
	framesPerBuffer int
	channels        int
	lowLatency      bool
	voices          int
	gain            float64
	sound           string
	samplePath      string
	rootNote        int
	fftOrder        int
	refreshHz       float64
	window          string
	record          bool
	outputDir       string
	bitDepth        int
	logFrames       bool
	udp             bool
	udpTarget       string
	ws              bool
	wsAddr          string
}

// ParseArgs parses args (without the program name) into an Invocation.
func ParseArgs(args []string) (*Invocation, error) {
	buildInfo := build.GetBuildFlags()
	defaults := config.NewConfig()
	inv := &Invocation{Tail: DefaultTail}
	fv := &flagValues{}
	var command string

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.VersionString(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(inv.ConfigPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg, fv); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			inv.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			command = CommandPlay
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Play command, also the default
	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Play the synth from the computer keyboard or a MIDI file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			command = CommandPlay
			return nil
		},
	}
	for _, c := range []*cobra.Command{rootCmd, playCmd} {
		c.Flags().StringVarP(&inv.MIDIFile, "midi", "m", "",
			"Play a Standard MIDI File instead of the keyboard")
		c.Flags().BoolVar(&inv.Loop, "loop", false,
			"Repeat the MIDI file until interrupted")
		c.Flags().BoolVar(&inv.Headless, "headless", false,
			"Run without the terminal UI")
	}
	rootCmd.AddCommand(playCmd)

	// Render command
	renderCmd := &cobra.Command{
		Use:   "render <input.mid> <output.wav>",
		Short: "Render a MIDI file through the synth into a WAV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			command = CommandRender
			inv.InputFile, inv.OutputFile = args[0], args[1]
			if inv.Tail < 0 {
				return fmt.Errorf("tail must not be negative, got %v", inv.Tail)
			}
			return nil
		},
	}
	renderCmd.Flags().DurationVar(&inv.Tail, "tail", DefaultTail,
		"Extra time rendered after the last event")
	rootCmd.AddCommand(renderCmd)

	// Devices command
	devicesCmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"list"},
		Short:   "List available audio output devices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			command = CommandDevices
			return nil
		},
	}
	devicesCmd.Flags().BoolVarP(&inv.Interactive, "tui", "t", false,
		"Browse devices in the terminal UI")
	rootCmd.AddCommand(devicesCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&inv.ConfigPath, "config", "",
		"Configuration file (YAML or TOML). Defaults to ./synthscope.yaml if present")
	pf.StringVar(&fv.logLevel, "log-level", defaults.LogLevel,
		"Log level: debug, info, warn, error")
	pf.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output (same as --log-level debug)")

	// Audio Device Configuration
	pf.StringVar(&fv.backend, "backend", defaults.Audio.Backend,
		"Audio backend: portaudio or beep")
	pf.IntVarP(&fv.device, "device", "d", defaults.Audio.OutputDevice,
		"Output device ID. Use the 'devices' command to see available devices.")
	pf.Float64VarP(&fv.sampleRate, "sample-rate", "s", defaults.Audio.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", defaults.Audio.FramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.IntVarP(&fv.channels, "channels", "c", defaults.Audio.OutputChannels,
		"Number of output channels (1=mono, 2=stereo)")
	pf.BoolVarP(&fv.lowLatency, "low-latency", "l", defaults.Audio.LowLatency,
		"Use the device's low latency setting")

	// Synth Configuration
	pf.IntVar(&fv.voices, "voices", defaults.Synth.Voices,
		"Voices per sound")
	pf.Float64Var(&fv.gain, "gain", defaults.Synth.Gain,
		"Master gain")
	pf.StringVar(&fv.sound, "sound", defaults.Synth.Sound,
		"Initial sound: sine or sampler")
	pf.StringVar(&fv.samplePath, "sample", defaults.Synth.Sampler.Path,
		"WAV file for the sampler sound")
	pf.IntVar(&fv.rootNote, "root-note", defaults.Synth.Sampler.RootNote,
		"MIDI note the sample was recorded at")

	// Analyser Configuration
	pf.IntVar(&fv.fftOrder, "fft-order", defaults.Analyzer.FFTOrder,
		"Analyser transform size as a power of two")
	pf.Float64Var(&fv.refreshHz, "refresh", defaults.Analyzer.RefreshHz,
		"Analyser refresh rate in Hz")
	pf.StringVar(&fv.window, "window", defaults.Analyzer.Window,
		"Analyser window function")

	// Recording Configuration
	pf.BoolVarP(&fv.record, "record", "r", defaults.Recording.Enabled,
		"Record the output to a WAV file")
	pf.StringVarP(&fv.outputDir, "output-dir", "o", defaults.Recording.OutputDir,
		"Directory for recordings")
	pf.IntVar(&fv.bitDepth, "bit-depth", defaults.Recording.BitDepth,
		"Recording bit depth: 16, 24 or 32")

	// Transport Configuration
	pf.BoolVar(&fv.logFrames, "log-frames", defaults.Transport.LogFrames,
		"Log a summary of analyser frames")
	pf.BoolVar(&fv.udp, "udp", defaults.Transport.UDPEnabled,
		"Publish analyser frames over UDP")
	pf.StringVar(&fv.udpTarget, "udp-target", defaults.Transport.UDPTargetAddress,
		"UDP destination address")
	pf.BoolVar(&fv.ws, "ws", defaults.Transport.WSEnabled,
		"Serve analyser frames over WebSocket")
	pf.StringVar(&fv.wsAddr, "ws-addr", defaults.Transport.WSAddress,
		"WebSocket listen address")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if command == "" {
		return &Invocation{}, nil
	}
	inv.Config.Command = command
	return inv, nil
}

// applyFlags copies every flag the user set over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config, fv *flagValues) error {
	fs := cmd.Flags()
	set := fs.Changed

	if set("log-level") {
		if _, ok := applog.ParseLevel(fv.logLevel); !ok {
			return fmt.Errorf("unknown log level %q", fv.logLevel)
		}
		cfg.LogLevel = fv.logLevel
	}
	if fv.verbose {
		cfg.LogLevel = "debug"
	}

	if set("backend") {
		cfg.Audio.Backend = fv.backend
	}
	if set("device") {
		cfg.Audio.OutputDevice = fv.device
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = fv.sampleRate
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = fv.framesPerBuffer
	}
	if set("channels") {
		cfg.Audio.OutputChannels = fv.channels
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = fv.lowLatency
	}

	if set("voices") {
		cfg.Synth.Voices = fv.voices
	}
	if set("gain") {
		cfg.Synth.Gain = fv.gain
	}
	if set("sound") {
		cfg.Synth.Sound = fv.sound
	}
	if set("sample") {
		cfg.Synth.Sampler.Path = fv.samplePath
	}
	if set("root-note") {
		cfg.Synth.Sampler.RootNote = fv.rootNote
	}

	if set("fft-order") {
		cfg.Analyzer.FFTOrder = fv.fftOrder
	}
	if set("refresh") {
		cfg.Analyzer.RefreshHz = fv.refreshHz
	}
	if set("window") {
		cfg.Analyzer.Window = fv.window
	}

	if set("record") {
		cfg.Recording.Enabled = fv.record
	}
	if set("output-dir") {
		cfg.Recording.OutputDir = fv.outputDir
	}
	if set("bit-depth") {
		cfg.Recording.BitDepth = fv.bitDepth
	}

	if set("log-frames") {
		cfg.Transport.LogFrames = fv.logFrames
	}
	if set("udp") {
		cfg.Transport.UDPEnabled = fv.udp
	}
	if set("udp-target") {
		cfg.Transport.UDPTargetAddress = fv.udpTarget
	}
	if set("ws") {
		cfg.Transport.WSEnabled = fv.ws
	}
	if set("ws-addr") {
		cfg.Transport.WSAddress = fv.wsAddr
	}
	return nil
}
