// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"sync/atomic"

	"github.com/go-audio/audio"

	"synthscope/internal/analysis"
	"synthscope/internal/synth"
)

// Processor is the render path every host drives: the synth fills the block,
// then the analyser, waveform and recorder observe it.
//
// Performance Critical (Hot Path):
// - Process runs on the audio thread
// - Uses pre-allocated buffers only
type Processor struct {
	synth    *synth.Synth
	analyzer *analysis.Analyzer
	waveform *analysis.Waveform
	recorder *Recorder

	channels   int
	sampleRate int
	buf        *audio.Float32Buffer // Wraps the host's output slice.

	blocks    atomic.Uint64
	writeErrs atomic.Uint64
}

// NewProcessor wires the render path. analyzer, waveform and recorder may be
// nil.
func NewProcessor(s *synth.Synth, analyzer *analysis.Analyzer, waveform *analysis.Waveform, recorder *Recorder, channels int) (*Processor, error) {
	if s == nil {
		return nil, fmt.Errorf("synth cannot be nil")
	}
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count: %d", channels)
	}

	rate := int(s.SampleRate())
	return &Processor{
		synth:      s,
		analyzer:   analyzer,
		waveform:   waveform,
		recorder:   recorder,
		channels:   channels,
		sampleRate: rate,
		buf: &audio.Float32Buffer{
			Format: &audio.Format{NumChannels: channels, SampleRate: rate},
		},
	}, nil
}

// Channels is the interleaved channel count of every block.
func (p *Processor) Channels() int { return p.channels }

// SampleRate is the render rate.
func (p *Processor) SampleRate() int { return p.sampleRate }

// Synth returns the voice pool being rendered.
func (p *Processor) Synth() *synth.Synth { return p.synth }

// Recorder returns the recorder, or nil.
func (p *Processor) Recorder() *Recorder { return p.recorder }

// Blocks is the number of blocks rendered.
func (p *Processor) Blocks() uint64 { return p.blocks.Load() }

// WriteErrors counts recording writes that failed.
func (p *Processor) WriteErrors() uint64 { return p.writeErrs.Load() }

// Process renders into an interleaved host buffer.
func (p *Processor) Process(out []float32) {
	p.buf.Data = out
	p.Render(p.buf)
}

// Render fills buf and feeds it to the observers.
func (p *Processor) Render(buf *audio.Float32Buffer) {
	p.synth.Render(buf)
	p.Observe(buf)
}

// Observe feeds an already rendered block to the analyser, waveform and
// recorder.
func (p *Processor) Observe(buf *audio.Float32Buffer) {
	if p.analyzer != nil {
		p.analyzer.IngestInterleaved(buf.Data, p.channels)
	}
	if p.waveform != nil {
		p.waveform.Push(buf)
	}
	if p.recorder != nil && p.recorder.Recording() {
		if err := p.recorder.Write(buf); err != nil {
			p.writeErrs.Add(1)
		}
	}
	p.blocks.Add(1)
}
