// SPDX-License-Identifier: MIT
package analysis

import (
	"testing"

	"github.com/go-audio/audio"
)

func TestNewWaveformValidation(t *testing.T) {
	if _, err := NewWaveform(0, 256, 1); err == nil {
		t.Error("NewWaveform(history=0) expected error")
	}
	if _, err := NewWaveform(16, 0, 1); err == nil {
		t.Error("NewWaveform(samplesPerBlock=0) expected error")
	}
}

func TestWaveformBlockPeaks(t *testing.T) {
	w, err := NewWaveform(4, 2, 0.5)
	if err != nil {
		t.Fatalf("NewWaveform() error = %v", err)
	}

	for _, s := range []float32{1, -2, 0.5, 0, 4, 4, 3} {
		w.PushSample(s)
	}

	if w.Written() != 3 {
		t.Errorf("Written() = %d, want 3", w.Written())
	}
	got := w.Snapshot(nil)
	want := []float32{0, 1, 0.25, 2}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestWaveformWrapsOldestFirst(t *testing.T) {
	w, err := NewWaveform(3, 1, 1)
	if err != nil {
		t.Fatalf("NewWaveform() error = %v", err)
	}
	for _, s := range []float32{0.1, 0.2, 0.3, 0.4, 0.5} {
		w.PushSample(s)
	}
	got := w.Snapshot(make([]float32, 0, 3))
	want := []float32{0.3, 0.4, 0.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestWaveformPushSumsChannels(t *testing.T) {
	w, err := NewWaveform(2, 2, 0.45)
	if err != nil {
		t.Fatalf("NewWaveform() error = %v", err)
	}
	buf := &audio.Float32Buffer{
		Format: &audio.Format{NumChannels: 2, SampleRate: 44100},
		Data:   []float32{0.5, 0.5, -1, 0.2},
	}
	w.Push(buf)

	got := w.Snapshot(nil)
	if want := float32(0.45); got[1] != want {
		t.Errorf("peak = %f, want %f", got[1], want)
	}
}

func TestWaveformPushDoesNotAllocate(t *testing.T) {
	w, err := NewWaveform(512, 256, 0.45)
	if err != nil {
		t.Fatalf("NewWaveform() error = %v", err)
	}
	buf := &audio.Float32Buffer{
		Format: &audio.Format{NumChannels: 2, SampleRate: 44100},
		Data:   make([]float32, 1024),
	}
	allocs := testing.AllocsPerRun(100, func() {
		w.Push(buf)
	})
	if allocs > 0 {
		t.Errorf("Push allocated memory: got %.1f allocs, want 0", allocs)
	}
}
