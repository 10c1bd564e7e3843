// SPDX-License-Identifier: MIT
package synth

type envelopeState uint8

const (
	envIdle envelopeState = iota
	envAttack
	envSustain
	envRelease
)

// Envelope is a linear attack/release gain ramp with full sustain.
type Envelope struct {
	sampleRate  float64
	attack      float64 // Seconds.
	release     float64 // Seconds.
	attackRate  float32 // Gain change per sample.
	releaseRate float32
	value       float32
	state       envelopeState
}

// SetSampleRate sets the rate used to convert times into per-sample steps.
func (e *Envelope) SetSampleRate(rate float64) {
	e.sampleRate = rate
	e.recalculate()
}

// SetParameters sets attack and release times in seconds.
func (e *Envelope) SetParameters(attack, release float64) {
	e.attack, e.release = attack, release
	e.recalculate()
}

func (e *Envelope) recalculate() {
	e.attackRate = rate(e.attack, e.sampleRate)
	e.releaseRate = rate(e.release, e.sampleRate)
}

func rate(seconds, sampleRate float64) float32 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return float32(1 / (seconds * sampleRate))
}

// NoteOn restarts the envelope from its current value.
func (e *Envelope) NoteOn() {
	if e.attackRate > 0 {
		e.state = envAttack
		return
	}
	e.value = 1
	e.state = envSustain
}

// NoteOff begins the release from the current value.
func (e *Envelope) NoteOff() {
	if e.state == envIdle {
		return
	}
	if e.release > 0 && e.sampleRate > 0 {
		e.releaseRate = float32(float64(e.value) / (e.release * e.sampleRate))
		e.state = envRelease
		return
	}
	e.Reset()
}

// Reset silences the envelope immediately.
func (e *Envelope) Reset() {
	e.value = 0
	e.state = envIdle
}

// Active reports whether the envelope is producing non-zero gain.
func (e *Envelope) Active() bool { return e.state != envIdle }

// Next advances one sample and returns the gain.
func (e *Envelope) Next() float32 {
	switch e.state {
	case envAttack:
		e.value += e.attackRate
		if e.value >= 1 {
			e.value = 1
			e.state = envSustain
		}
	case envRelease:
		e.value -= e.releaseRate
		if e.value <= 0 {
			e.Reset()
		}
	}
	return e.value
}
