// SPDX-License-Identifier: MIT
package synth

import (
	"math"

	"github.com/go-audio/audio"
)

const (
	// LevelScale converts note velocity into peak amplitude.
	LevelScale = 0.15
	// TailOffFactor is applied to the release multiplier every sample.
	TailOffFactor = 0.99
	// TailOffCutoff is the release multiplier at which a voice is cleared.
	TailOffCutoff = 0.005
)

// SineVoice is a monophonic sine oscillator with an exponential release.
// A zero phase increment means the voice is idle.
type SineVoice struct {
	sampleRate float64
	note       int
	phase      float64 // Radians.
	increment  float64 // Radians per sample.
	level      float64
	tailOff    float64 // 0 when not decaying, otherwise in (0, 1].
}

var _ Voice = (*SineVoice)(nil)

// NewSineVoice returns an idle voice rendering at sampleRate.
func NewSineVoice(sampleRate float64) *SineVoice {
	return &SineVoice{sampleRate: sampleRate, note: -1}
}

func (v *SineVoice) CanPlaySound(sound Sound) bool {
	_, ok := sound.(SineSound)
	if !ok {
		_, ok = sound.(*SineSound)
	}
	return ok
}

func (v *SineVoice) SetSampleRate(rate float64) { v.sampleRate = rate }

func (v *SineVoice) StartNote(note int, velocity float32, _ Sound, _ int) {
	v.note = note
	v.phase = 0
	v.level = float64(velocity) * LevelScale
	v.tailOff = 0
	v.increment = 2 * math.Pi * NoteHz(note) / v.sampleRate
}

func (v *SineVoice) StopNote(_ float32, allowTailOff bool) {
	if allowTailOff {
		// Only the first release starts the decay.
		if v.tailOff == 0 {
			v.tailOff = 1
		}
		return
	}
	v.clear()
}

func (v *SineVoice) RenderNextBlock(buf *audio.Float32Buffer, start, n int) {
	if v.increment == 0 {
		return
	}
	channels := numChannels(buf)
	data := buf.Data

	if v.tailOff > 0 {
		for i := start; i < start+n; i++ {
			s := float32(math.Sin(v.phase) * v.level * v.tailOff)
			addFrame(data, channels, i, s)
			v.phase += v.increment
			v.tailOff *= TailOffFactor
			if v.tailOff <= TailOffCutoff {
				v.clear()
				return
			}
		}
		return
	}

	for i := start; i < start+n; i++ {
		s := float32(math.Sin(v.phase) * v.level)
		addFrame(data, channels, i, s)
		v.phase += v.increment
	}
}

func (v *SineVoice) Note() int    { return v.note }
func (v *SineVoice) Active() bool { return v.increment != 0 }

// Phase returns the oscillator phase in radians.
func (v *SineVoice) Phase() float64 { return v.phase }

// Increment returns the phase advance per sample.
func (v *SineVoice) Increment() float64 { return v.increment }

// Level returns the peak amplitude of the current note.
func (v *SineVoice) Level() float64 { return v.level }

// TailOff returns the release multiplier, 0 when not releasing.
func (v *SineVoice) TailOff() float64 { return v.tailOff }

func (v *SineVoice) clear() {
	v.note = -1
	v.increment = 0
	v.tailOff = 0
}
