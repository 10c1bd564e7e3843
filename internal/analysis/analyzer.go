// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"

	applog "synthscope/internal/log"
	"synthscope/pkg/bitint"
)

// Skew of the logarithmic frequency axis: smaller values give more of the
// curve to low frequencies.
const scopeSkew = 0.2

// Options configures an Analyzer.
type Options struct {
	FFTOrder   int     // Transform length is 1 << FFTOrder.
	ScopeSize  int     // Points in the output curve.
	SampleRate float64 // Used for bin frequencies only.
	MinDB      float64 // Level mapped to 0.
	MaxDB      float64 // Level mapped to 1.
	Window     WindowFunc
}

// DefaultOptions returns a 2048-point Hann analyser with a 512-point curve
// spanning -100 to 0 dB.
func DefaultOptions(sampleRate float64) Options {
	return Options{
		FFTOrder:   11,
		ScopeSize:  512,
		SampleRate: sampleRate,
		MinDB:      -100,
		MaxDB:      0,
		Window:     Hann,
	}
}

// Pre-allocated buffers for the consumer side.
type fftWorkspace struct {
	input     []float64    // Windowed block.
	fftOutput []complex128 // N/2+1 coefficients.
	window    []float64    // Pre-calculated window coefficients.
	indices   []int        // Scope point -> FFT bin.
}

// Analyzer turns a stream of samples into a log-frequency dB curve.
//
// Ingest runs on the audio goroutine and hands complete blocks over through
// an atomic flag; ComputeFrame runs on a refresher goroutine. At most one
// block is pending: blocks completed while one is pending are dropped whole.
type Analyzer struct {
	fftCalculator *fourier.FFT
	fftSize       int
	sampleRate    float64
	minDB, maxDB  float64
	normDB        float64 // 20*log10(N).

	// Producer side.
	fifo    []float32
	cursor  int
	block   []float32 // Written only while pending is false.
	pending atomic.Bool

	workspace fftWorkspace

	mu        sync.RWMutex // Guards scope and magnitude.
	scope     []float32
	magnitude []float64

	frames  atomic.Uint64
	dropped atomic.Uint64
}

var (
	_ SampleSink        = (*Analyzer)(nil)
	_ FFTResultProvider = (*Analyzer)(nil)
)

// NewAnalyzer validates opts and pre-allocates every buffer.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	if opts.FFTOrder < 1 || opts.FFTOrder > bitint.MaxOrder {
		return nil, fmt.Errorf("fft order must be in [1, %d], got %d", bitint.MaxOrder, opts.FFTOrder)
	}
	fftSize := bitint.FromOrder(opts.FFTOrder)
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if opts.ScopeSize <= 0 {
		return nil, fmt.Errorf("scope size must be positive, got %d", opts.ScopeSize)
	}
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", opts.SampleRate)
	}
	if opts.MinDB >= opts.MaxDB {
		return nil, fmt.Errorf("min dB (%g) must be below max dB (%g)", opts.MinDB, opts.MaxDB)
	}

	bins := fftSize/2 + 1
	a := &Analyzer{
		fftCalculator: fourier.NewFFT(fftSize),
		fftSize:       fftSize,
		sampleRate:    opts.SampleRate,
		minDB:         opts.MinDB,
		maxDB:         opts.MaxDB,
		normDB:        20 * math.Log10(float64(fftSize)),
		fifo:          make([]float32, fftSize),
		block:         make([]float32, fftSize),
		workspace: fftWorkspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, bins),
			window:    make([]float64, fftSize),
			indices:   make([]int, opts.ScopeSize),
		},
		scope:     make([]float32, opts.ScopeSize),
		magnitude: make([]float64, bins),
	}
	fillWindow(a.workspace.window, opts.Window)
	for i := range a.workspace.indices {
		a.workspace.indices[i] = ScopeBin(i, opts.ScopeSize, fftSize)
	}

	applog.Infof("Analysis: Initializing Analyzer (Size: %d, Scope: %d, SampleRate: %.1f Hz, Window: %v)",
		fftSize, opts.ScopeSize, opts.SampleRate, opts.Window)
	return a, nil
}

// ScopeBin maps scope point i of m onto an FFT bin of an n-point transform
// along a skewed logarithmic axis. The result is clamped to [0, n/2].
func ScopeBin(i, m, n int) int {
	proportion := 1 - math.Exp(math.Log(1-float64(i)/float64(m))*scopeSkew)
	idx := int(math.Round(float64(n/2) * proportion))
	return min(max(idx, 0), n/2)
}

// Ingest appends one sample. When the FIFO fills it is handed to the
// consumer unless a block is still pending, in which case it is dropped.
func (a *Analyzer) Ingest(sample float32) {
	a.fifo[a.cursor] = sample
	a.cursor++
	if a.cursor < a.fftSize {
		return
	}
	if !a.pending.Load() {
		copy(a.block, a.fifo)
		a.pending.Store(true)
	} else {
		a.dropped.Add(1)
	}
	a.cursor = 0
}

// IngestInterleaved feeds the first channel of an interleaved buffer.
func (a *Analyzer) IngestInterleaved(data []float32, channels int) {
	if channels < 1 {
		channels = 1
	}
	for i := 0; i < len(data); i += channels {
		a.Ingest(data[i])
	}
}

// Pending reports whether a complete block is waiting for ComputeFrame.
func (a *Analyzer) Pending() bool { return a.pending.Load() }

// ComputeFrame transforms the pending block and refreshes the curve. It
// returns false, leaving the curve untouched, when no block is pending.
func (a *Analyzer) ComputeFrame() bool {
	if !a.pending.Load() {
		return false
	}

	ws := &a.workspace
	for i, s := range a.block {
		ws.input[i] = float64(s) * ws.window[i]
	}
	// The block has been copied out; the producer may refill it.
	a.pending.Store(false)

	a.fftCalculator.Coefficients(ws.fftOutput, ws.input)

	span := a.maxDB - a.minDB
	a.mu.Lock()
	for i, c := range ws.fftOutput {
		a.magnitude[i] = cmplx.Abs(c)
	}
	for i, bin := range ws.indices {
		level := gainToDecibels(a.magnitude[bin], a.minDB) - a.normDB
		level = min(max(level, a.minDB), a.maxDB)
		a.scope[i] = float32((level - a.minDB) / span)
	}
	a.mu.Unlock()

	a.frames.Add(1)
	return true
}

// gainToDecibels converts a linear gain to dB, with floorDB for silence.
func gainToDecibels(gain, floorDB float64) float64 {
	if gain <= 0 {
		return floorDB
	}
	return max(20*math.Log10(gain), floorDB)
}

// Scope returns a copy of the latest curve. Values are in [0, 1].
// NOTE: allocates; display loops should use ScopeInto.
func (a *Analyzer) Scope() []float32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]float32, len(a.scope))
	copy(out, a.scope)
	return out
}

// ScopeInto copies the latest curve into dst, which must be ScopeSize long.
func (a *Analyzer) ScopeInto(dst []float32) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(dst) != len(a.scope) {
		return fmt.Errorf("destination slice length %d does not match scope size %d", len(dst), len(a.scope))
	}
	copy(dst, a.scope)
	return nil
}

// ScopeSize returns the number of curve points.
func (a *Analyzer) ScopeSize() int { return len(a.scope) }

// MagnitudesInto copies the latest magnitude spectrum into dst, which must
// be FFTSize/2+1 long.
func (a *Analyzer) MagnitudesInto(dst []float64) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(dst) != len(a.magnitude) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dst), len(a.magnitude))
	}
	copy(dst, a.magnitude)
	return nil
}

// FrequencyForBin returns the centre frequency (Hz) of binIndex, or 0 when
// out of range.
func (a *Analyzer) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex > a.fftSize/2 {
		return 0.0
	}
	return float64(binIndex) * (a.sampleRate / float64(a.fftSize))
}

// FFTSize returns the transform length.
func (a *Analyzer) FFTSize() int { return a.fftSize }

// SampleRate returns the configured sample rate.
func (a *Analyzer) SampleRate() float64 { return a.sampleRate }

// MinDB and MaxDB return the curve's level range.
func (a *Analyzer) MinDB() float64 { return a.minDB }
func (a *Analyzer) MaxDB() float64 { return a.maxDB }

// Frames returns how many curves have been computed.
func (a *Analyzer) Frames() uint64 { return a.frames.Load() }

// Dropped returns how many complete blocks were discarded because the
// previous one had not been consumed.
func (a *Analyzer) Dropped() uint64 { return a.dropped.Load() }
