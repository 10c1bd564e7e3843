// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/go-audio/audio"
)

// Waveform keeps a scrolling history of per-block peak levels. Push runs on
// the audio goroutine; Snapshot may run anywhere and never blocks it.
type Waveform struct {
	gain            float32
	samplesPerBlock int

	// Producer side.
	peak  float32
	count int

	levels  []atomic.Uint32 // math.Float32bits of each block peak.
	written atomic.Uint64   // Total blocks completed.
}

// NewWaveform returns a waveform holding history blocks of samplesPerBlock
// samples each. Input is scaled by gain before the peak is taken.
func NewWaveform(history, samplesPerBlock int, gain float64) (*Waveform, error) {
	if history <= 0 {
		return nil, fmt.Errorf("waveform history must be positive, got %d", history)
	}
	if samplesPerBlock <= 0 {
		return nil, fmt.Errorf("waveform samples per block must be positive, got %d", samplesPerBlock)
	}
	return &Waveform{
		gain:            float32(gain),
		samplesPerBlock: samplesPerBlock,
		levels:          make([]atomic.Uint32, history),
	}, nil
}

// PushSample adds one mono sample.
func (w *Waveform) PushSample(s float32) {
	s *= w.gain
	if s < 0 {
		s = -s
	}
	if s > w.peak {
		w.peak = s
	}
	w.count++
	if w.count < w.samplesPerBlock {
		return
	}
	n := w.written.Load()
	w.levels[n%uint64(len(w.levels))].Store(math.Float32bits(w.peak))
	w.written.Store(n + 1)
	w.peak, w.count = 0, 0
}

// Push adds every frame of an interleaved buffer, summing its channels.
func (w *Waveform) Push(buf *audio.Float32Buffer) {
	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	data := buf.Data
	for i := 0; i+channels <= len(data); i += channels {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += data[i+ch]
		}
		w.PushSample(sum)
	}
}

// Len returns the history length in blocks.
func (w *Waveform) Len() int { return len(w.levels) }

// Written returns how many blocks have been completed.
func (w *Waveform) Written() uint64 { return w.written.Load() }

// Snapshot appends the history, oldest first, to dst[:0] and returns it.
func (w *Waveform) Snapshot(dst []float32) []float32 {
	dst = dst[:0]
	n := uint64(len(w.levels))
	end := w.written.Load()
	for i := uint64(0); i < n; i++ {
		dst = append(dst, math.Float32frombits(w.levels[(end+i)%n].Load()))
	}
	return dst
}
