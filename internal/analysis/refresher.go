// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	applog "synthscope/internal/log"
	"synthscope/internal/transport"
)

// Frame is one published analyser snapshot.
type Frame struct {
	Sequence  uint32      `json:"seq"`
	Timestamp int64       `json:"ts"` // Nanoseconds since epoch.
	Scope     []float32   `json:"scope"`
	Bands     []BandLevel `json:"bands,omitempty"`
	Waveform  []float32   `json:"waveform,omitempty"`
}

// Refresher periodically calls ComputeFrame and, for every new curve,
// builds a Frame and sends it to each transport. It runs in its own
// goroutine managed by Start and Stop.
type Refresher struct {
	analyzer   *Analyzer
	bands      *BandMeter // Optional.
	waveform   *Waveform  // Optional.
	transports []transport.Transport
	interval   time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequence uint32
	latest   atomic.Pointer[Frame]
}

// NewRefresher creates a refresher ticking at interval. bands and waveform
// may be nil. An invalid interval defaults to ~30 Hz.
func NewRefresher(analyzer *Analyzer, bands *BandMeter, waveform *Waveform, interval time.Duration, transports ...transport.Transport) (*Refresher, error) {
	if analyzer == nil {
		return nil, errors.New("Refresher: analyzer cannot be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("Refresher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("Refresher: Initializing (Interval: %s, Transports: %d)", interval, len(transports))
	return &Refresher{
		analyzer:   analyzer,
		bands:      bands,
		waveform:   waveform,
		transports: transports,
		interval:   interval,
	}, nil
}

// Start launches the refresh goroutine. Calling Start while running is a
// no-op.
func (r *Refresher) Start() {
	r.mu.Lock()
	if r.ticker != nil {
		r.mu.Unlock()
		applog.Warnf("Refresher: Start called but already running.")
		return
	}
	r.ticker = time.NewTicker(r.interval)
	r.doneChan = make(chan struct{})
	r.stopOnce = sync.Once{}

	ticker := r.ticker
	doneChan := r.doneChan
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		applog.Debugf("Refresher: Goroutine started (Interval: %s)", r.interval)
		for {
			select {
			case <-ticker.C:
				r.Tick()
			case <-doneChan:
				applog.Debugf("Refresher: Goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Safe to call more
// than once.
func (r *Refresher) Stop() error {
	r.mu.Lock()
	if r.ticker == nil {
		r.mu.Unlock()
		return nil
	}
	r.stopOnce.Do(func() {
		close(r.doneChan)
		r.ticker.Stop()
		r.ticker = nil
	})
	r.mu.Unlock()

	r.wg.Wait()
	applog.Debugf("Refresher: Goroutine finished.")
	return nil
}

// Close stops the refresher and closes every transport.
func (r *Refresher) Close() error {
	err := r.Stop()
	for _, t := range r.transports {
		if cerr := t.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Tick runs one refresh. It reports whether a new frame was published.
func (r *Refresher) Tick() bool {
	if !r.analyzer.ComputeFrame() {
		return false
	}

	r.sequence++
	frame := &Frame{
		Sequence:  r.sequence,
		Timestamp: time.Now().UnixNano(),
		Scope:     r.analyzer.Scope(),
	}
	if r.bands != nil {
		levels, err := r.bands.Update()
		if err != nil {
			applog.Errorf("Refresher: Error updating bands: %v", err)
		} else {
			frame.Bands = append([]BandLevel(nil), levels...)
		}
	}
	if r.waveform != nil {
		frame.Waveform = r.waveform.Snapshot(nil)
	}
	r.latest.Store(frame)

	for _, t := range r.transports {
		if err := t.Send(frame); err != nil {
			applog.Debugf("Refresher: Transport %T failed frame %d: %v", t, frame.Sequence, err)
		}
	}
	return true
}

// Latest returns the most recently published frame, or nil before the
// first one. Frames are never modified after publication.
func (r *Refresher) Latest() *Frame { return r.latest.Load() }

// Summary describes the frame in one line for logging transports.
func (f *Frame) Summary() string {
	peak, at := float32(0), 0
	for i, v := range f.Scope {
		if v > peak {
			peak, at = v, i
		}
	}
	band := "-"
	var loudest float32
	for _, b := range f.Bands {
		if b.Level > loudest {
			loudest, band = b.Level, b.Name
		}
	}
	return fmt.Sprintf("frame %d: scope peak %.2f at point %d/%d, loudest band %s",
		f.Sequence, peak, at, len(f.Scope), band)
}

var _ transport.Summary = (*Frame)(nil)
