// SPDX-License-Identifier: MIT
package analysis

import (
	"testing"

	"synthscope/pkg/utils"
)

func TestNewBandMeterValidation(t *testing.T) {
	if _, err := NewBandMeter(nil, nil, -100, 0); err == nil {
		t.Error("NewBandMeter(nil) expected error")
	}
	a := newTestAnalyzer(t)
	if _, err := NewBandMeter(a, nil, 0, -100); err == nil {
		t.Error("NewBandMeter() with inverted range expected error")
	}
	m, err := NewBandMeter(a, nil, -100, 0)
	if err != nil {
		t.Fatalf("NewBandMeter() error = %v", err)
	}
	if len(m.Bands()) != len(DefaultBands) {
		t.Errorf("Bands() len = %d, want %d", len(m.Bands()), len(DefaultBands))
	}
}

func TestBandMeterTone(t *testing.T) {
	tests := []struct {
		name     string
		freq     float64
		wantBand string
	}{
		{"Bass", 120, "bass"},
		{"Mid", 1000, "mid"},
		{"High Mid", 3000, "highMid"},
		{"Treble", 8000, "treble"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t)
			m, err := NewBandMeter(a, DefaultBands, -100, 0)
			if err != nil {
				t.Fatalf("NewBandMeter() error = %v", err)
			}

			feed(a, utils.GenerateSineWave(testFFTSize, testSampleRate, tt.freq, 0.5))
			a.ComputeFrame()

			levels, err := m.Update()
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}

			loudest := 0
			for i, l := range levels {
				if l.Level > levels[loudest].Level {
					loudest = i
				}
			}
			if levels[loudest].Name != tt.wantBand {
				t.Errorf("loudest band = %s (%v), want %s", levels[loudest].Name, levels, tt.wantBand)
			}
			if levels[loudest].Level < 0.9 {
				t.Errorf("%s level = %f, want > 0.9", tt.wantBand, levels[loudest].Level)
			}
			if tt.freq >= 1000 && levels[0].Level > 0.3 {
				t.Errorf("sub level = %f, want near the floor", levels[0].Level)
			}
		})
	}
}

func TestBandMeterUpdateDoesNotAllocate(t *testing.T) {
	a := newTestAnalyzer(t)
	m, err := NewBandMeter(a, nil, -100, 0)
	if err != nil {
		t.Fatalf("NewBandMeter() error = %v", err)
	}
	allocs := testing.AllocsPerRun(100, func() {
		_, _ = m.Update()
	})
	if allocs > 0 {
		t.Errorf("Update allocated memory: got %.1f allocs, want 0", allocs)
	}
}
