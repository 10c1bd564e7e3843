// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"synthscope/internal/config"
	applog "synthscope/internal/log"
)

// Streamer adapts a Processor to beep. It renders blocks of the configured
// size and spreads them over beep's stereo frames; a mono processor feeds
// both sides. It never ends.
type Streamer struct {
	processor *Processor
	block     []float32
	pos       int // Next unread frame in block.
	frames    int
}

var _ beep.Streamer = (*Streamer)(nil)

// NewStreamer renders framesPerBuffer frames at a time.
func NewStreamer(p *Processor, framesPerBuffer int) *Streamer {
	return &Streamer{
		processor: p,
		block:     make([]float32, framesPerBuffer*p.Channels()),
		pos:       framesPerBuffer,
		frames:    framesPerBuffer,
	}
}

// Stream fills samples with rendered audio.
func (s *Streamer) Stream(samples [][2]float64) (int, bool) {
	channels := s.processor.Channels()
	for i := range samples {
		if s.pos >= s.frames {
			s.processor.Process(s.block)
			s.pos = 0
		}
		base := s.pos * channels
		left := float64(s.block[base])
		right := left
		if channels > 1 {
			right = float64(s.block[base+1])
		}
		samples[i][0], samples[i][1] = left, right
		s.pos++
	}
	return len(samples), true
}

// Err is always nil.
func (s *Streamer) Err() error { return nil }

// BeepEngine plays the Processor through the beep speaker.
type BeepEngine struct {
	streamer   *Streamer
	sampleRate beep.SampleRate
	bufferSize int

	mu      sync.Mutex
	started bool
}

var _ Host = (*BeepEngine)(nil)

// NewBeepEngine prepares a speaker host with a buffer of framesPerBuffer.
func NewBeepEngine(cfg config.AudioConfig, processor *Processor) (*BeepEngine, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	return &BeepEngine{
		streamer:   NewStreamer(processor, cfg.FramesPerBuffer),
		sampleRate: beep.SampleRate(processor.SampleRate()),
		bufferSize: cfg.FramesPerBuffer,
	}, nil
}

// Name identifies the backend.
func (b *BeepEngine) Name() string { return config.BackendBeep }

// Start initialises the speaker and starts streaming.
func (b *BeepEngine) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}
	if err := speaker.Init(b.sampleRate, b.bufferSize); err != nil {
		return fmt.Errorf("failed to initialise speaker: %w", err)
	}
	speaker.Play(b.streamer)
	b.started = true
	applog.Infof("BeepEngine: Playing at %d Hz, buffer %d frames", int(b.sampleRate), b.bufferSize)
	return nil
}

// Stop silences the speaker.
func (b *BeepEngine) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return nil
	}
	speaker.Clear()
	speaker.Close()
	b.started = false
	applog.Infof("BeepEngine: Stopped")
	return nil
}

// Close stops any recording and the speaker.
func (b *BeepEngine) Close() error {
	if rec := b.streamer.processor.Recorder(); rec != nil {
		if err := rec.StopRecording(); err != nil {
			return err
		}
	}
	return b.Stop()
}

// NewHost builds the backend named in cfg.
func NewHost(cfg config.AudioConfig, processor *Processor) (Host, error) {
	switch cfg.Backend {
	case config.BackendPortAudio, "":
		return NewEngine(cfg, processor)
	case config.BackendBeep:
		return NewBeepEngine(cfg, processor)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}
