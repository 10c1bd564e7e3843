// SPDX-License-Identifier: MIT
/*
Package audio hosts the synth on a real output device and offline:
- PortAudio output stream driving the render Processor
- beep speaker backend as an alternative host
- WAV recording of the live output
- Offline rendering of MIDI sequences to WAV

Thread Safety:
- Uses atomic operations for state management
- Pre-allocates buffers to avoid GC in hot path
- Locks OS thread during audio processing
*/
package audio

import (
	"fmt"
	"runtime"
	"time"

	"github.com/gordonklaus/portaudio"

	"synthscope/internal/config"
	applog "synthscope/internal/log"
)

// Host is an output backend driving a Processor.
type Host interface {
	Name() string
	Start() error
	Stop() error
	Close() error
}

// Engine plays the Processor through a PortAudio output stream. PortAudio
// must be initialised before NewEngine.
type Engine struct {
	// Core configuration and state.
	config    config.AudioConfig
	processor *Processor

	// Audio output handling.
	outputDevice  *portaudio.DeviceInfo
	outputLatency time.Duration
	outputStream  *portaudio.Stream
}

var _ Host = (*Engine)(nil)

// NewEngine opens nothing yet; it resolves the device and latency.
func NewEngine(cfg config.AudioConfig, processor *Processor) (*Engine, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	outputDevice, err := OutputDevice(cfg.OutputDevice)
	if err != nil {
		return nil, err
	}
	if outputDevice.MaxOutputChannels < processor.Channels() {
		return nil, fmt.Errorf("device %s has %d output channels, need %d",
			outputDevice.Name, outputDevice.MaxOutputChannels, processor.Channels())
	}

	engine := &Engine{
		config:       cfg,
		processor:    processor,
		outputDevice: outputDevice,
	}

	if cfg.LowLatency {
		engine.outputLatency = outputDevice.DefaultLowOutputLatency
	} else {
		engine.outputLatency = outputDevice.DefaultHighOutputLatency
	}

	return engine, nil
}

// Name identifies the backend.
func (e *Engine) Name() string { return config.BackendPortAudio }

// Device is the resolved output device.
func (e *Engine) Device() *portaudio.DeviceInfo { return e.outputDevice }

// Start opens and starts the output stream.
func (e *Engine) Start() error {
	if e.outputStream != nil {
		return nil
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0, // No input device
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: e.processor.Channels(),
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.FramesPerBuffer,
		SampleRate:      float64(e.processor.SampleRate()),
	}

	stream, err := portaudio.OpenStream(params, e.processOutputStream)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	e.outputStream = stream

	if err := e.outputStream.Start(); err != nil {
		e.outputStream.Close()
		e.outputStream = nil
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	applog.Infof("Engine: Output on %q, %d Hz, %d channels, %d frames, latency %v",
		e.outputDevice.Name, e.processor.SampleRate(), e.processor.Channels(),
		e.config.FramesPerBuffer, e.outputLatency)
	return nil
}

// Stop stops and closes the output stream.
func (e *Engine) Stop() error {
	if e.outputStream != nil {
		if err := e.outputStream.Stop(); err != nil {
			return err
		}

		if err := e.outputStream.Close(); err != nil {
			return err
		}

		e.outputStream = nil
		applog.Infof("Engine: Output stream stopped")
	}

	return nil
}

// Close stops any recording and the stream.
func (e *Engine) Close() error {
	if rec := e.processor.Recorder(); rec != nil {
		if err := rec.StopRecording(); err != nil {
			return err
		}
	}
	return e.Stop()
}

// processOutputStream is the core audio callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processOutputStream(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.processor.Process(out)
}
