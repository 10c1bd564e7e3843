// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
)

// FrequencyBand names a frequency range.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands splits the audible range into six bands.
var DefaultBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: 20000},
}

// BandLevel is one band's level in [0, 1].
type BandLevel struct {
	Name  string  `json:"name"`
	Level float32 `json:"level"`
}

// BandMeter reduces the latest magnitude spectrum to one level per band,
// mapped onto the same dB range as the scope curve.
type BandMeter struct {
	provider FFTResultProvider
	bands    []FrequencyBand
	binRange [][2]int // Inclusive start, exclusive end.
	mags     []float64
	levels   []BandLevel
	minDB    float64
	maxDB    float64
}

// NewBandMeter precomputes the bin range of every band. Bands above Nyquist
// are kept but always read zero.
func NewBandMeter(provider FFTResultProvider, bands []FrequencyBand, minDB, maxDB float64) (*BandMeter, error) {
	if provider == nil {
		return nil, errors.New("band meter requires a non-nil FFTResultProvider")
	}
	if len(bands) == 0 {
		bands = DefaultBands
	}
	if minDB >= maxDB {
		return nil, errors.New("band meter min dB must be below max dB")
	}

	n := provider.FFTSize()/2 + 1
	m := &BandMeter{
		provider: provider,
		bands:    bands,
		binRange: make([][2]int, len(bands)),
		mags:     make([]float64, n),
		levels:   make([]BandLevel, len(bands)),
		minDB:    minDB,
		maxDB:    maxDB,
	}
	for b, band := range bands {
		m.levels[b].Name = band.Name
		start, end := n, n
		for i := 0; i < n; i++ {
			freq := provider.FrequencyForBin(i)
			if freq >= band.LowHz && start == n {
				start = i
			}
			if freq >= band.HighHz {
				end = i
				break
			}
		}
		m.binRange[b] = [2]int{start, max(start, end)}
	}
	return m, nil
}

// Update recomputes every band from the provider's latest spectrum. The
// returned slice is reused by the next call.
func (m *BandMeter) Update() ([]BandLevel, error) {
	if err := m.provider.MagnitudesInto(m.mags); err != nil {
		return nil, err
	}

	half := float64(m.provider.FFTSize()) / 2
	span := m.maxDB - m.minDB
	for b, r := range m.binRange {
		var energy float64
		for i := r[0]; i < r[1]; i++ {
			energy += m.mags[i] * m.mags[i]
		}
		level := gainToDecibels(math.Sqrt(energy)/half, m.minDB)
		level = min(max(level, m.minDB), m.maxDB)
		m.levels[b].Level = float32((level - m.minDB) / span)
	}
	return m.levels, nil
}

// Bands returns the configured bands.
func (m *BandMeter) Bands() []FrequencyBand { return m.bands }
