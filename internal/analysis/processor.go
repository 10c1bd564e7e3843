// SPDX-License-Identifier: MIT
package analysis

// SampleSink accepts mono samples from the audio goroutine. Implementations
// must not block, lock or allocate.
type SampleSink interface {
	Ingest(sample float32)
}

// FFTResultProvider exposes the latest magnitude spectrum. It decouples
// consumers such as BandMeter from the concrete Analyzer.
type FFTResultProvider interface {
	MagnitudesInto(dst []float64) error   // Copies the N/2+1 magnitudes into dst.
	FrequencyForBin(binIndex int) float64 // Centre frequency (Hz) of a bin.
	FFTSize() int                         // Transform length N.
	SampleRate() float64                  // Rate of the analysed signal.
}
