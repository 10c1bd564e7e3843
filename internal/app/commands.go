// SPDX-License-Identifier: MIT
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"synthscope/internal/audio"
	"synthscope/internal/config"
	applog "synthscope/internal/log"
	"synthscope/internal/midi"
	"synthscope/internal/tui"
)

// PlayOptions selects the event source for Play.
type PlayOptions struct {
	MIDIFile string // Empty for the terminal keyboard.
	Loop     bool
	Headless bool // No terminal UI; run until ctx is done or the file ends.
}

// Play runs the synth live on the configured output host.
func Play(ctx context.Context, cfg *config.Config, opts PlayOptions) error {
	var seq midi.Sequence
	if opts.MIDIFile != "" {
		var err error
		if seq, err = midi.ReadFile(opts.MIDIFile); err != nil {
			return err
		}
	} else if opts.Headless {
		return fmt.Errorf("headless play needs a MIDI file")
	}

	transports, err := NewTransports(cfg.Transport)
	if err != nil {
		return err
	}
	p, err := NewPipeline(cfg, transports...)
	if err != nil {
		for _, t := range transports {
			t.Close()
		}
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			applog.Errorf("App: Error closing pipeline: %v", err)
		}
	}()

	if cfg.Audio.Backend == config.BackendPortAudio {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}

	host, err := audio.NewHost(cfg.Audio, p.Processor)
	if err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		name := audio.RecordingFilename(cfg.Recording.OutputDir, time.Now())
		if err := p.Recorder.StartRecording(name); err != nil {
			return err
		}
	}

	// CRITICAL: Start of real-time audio processing
	if err := host.Start(); err != nil {
		return err
	}
	defer func() {
		if err := host.Close(); err != nil {
			applog.Errorf("App: Error closing %s host: %v", host.Name(), err)
		}
	}()
	p.Refresher.Start()

	var done <-chan struct{}
	if seq != nil {
		player := midi.NewPlayer(seq, p.Synth, opts.Loop)
		player.Start()
		defer player.Stop()
		done = player.Done()
	}

	if opts.Headless {
		select {
		case <-ctx.Done():
		case <-done:
			// Let the release tails ring out.
			time.Sleep(500 * time.Millisecond)
		}
		return nil
	}

	pianoOpts := tui.DefaultPianoOptions()
	pianoOpts.FrameRate = int(cfg.Analyzer.RefreshHz)
	pianoOpts.RecordingDir = cfg.Recording.OutputDir
	return tui.StartPianoUI(p.Synth, p.Refresher, p.Recorder, pianoOpts)
}

// Render plays a MIDI file through the synth offline into a WAV file.
func Render(cfg *config.Config, input, output string, tail time.Duration) (audio.OfflineResult, error) {
	seq, err := midi.ReadFile(input)
	if err != nil {
		return audio.OfflineResult{}, err
	}

	transports, err := NewTransports(cfg.Transport)
	if err != nil {
		return audio.OfflineResult{}, err
	}
	p, err := NewPipeline(cfg, transports...)
	if err != nil {
		for _, t := range transports {
			t.Close()
		}
		return audio.OfflineResult{}, err
	}
	defer p.Close()

	if err := p.Recorder.StartRecording(output); err != nil {
		return audio.OfflineResult{}, err
	}

	res, err := audio.RenderOffline(p.Processor, seq, p.Refresher, cfg.Audio.FramesPerBuffer, tail)
	if stopErr := p.Recorder.StopRecording(); err == nil {
		err = stopErr
	}
	return res, err
}

// Devices lists output devices as text or, when interactive, in the
// terminal UI.
func Devices(w io.Writer, interactive bool) error {
	if interactive {
		sel, err := tui.StartDeviceListUI()
		if err != nil {
			return err
		}
		if sel.Chosen {
			fmt.Fprintf(w, "Selected device %d (%s) at %.0f Hz\n", sel.DeviceID, sel.DeviceName, sel.SampleRate)
			fmt.Fprintf(w, "Use: --device %d --sample-rate %.0f --channels %d\n", sel.DeviceID, sel.SampleRate, sel.Channels)
		}
		return nil
	}

	devices, err := audio.GetDevices()
	if err != nil {
		return err
	}
	audio.ListDevices(w, devices)
	return nil
}
