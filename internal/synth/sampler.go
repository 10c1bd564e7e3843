// SPDX-License-Identifier: MIT
package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-audio/audio"
)

// SamplerSound is a pre-decoded sample played back at a pitch relative to
// its root note. At most two source channels are kept.
type SamplerSound struct {
	name       string
	left       []float32
	right      []float32 // nil for mono sources.
	sourceRate float64
	rootNote   int
	attack     float64
	release    float64
}

var _ Sound = (*SamplerSound)(nil)

// NewSamplerSound copies up to maxLength seconds of buf (interleaved) into a
// playable sound. attack and release are in seconds.
func NewSamplerSound(name string, buf *audio.Float32Buffer, rootNote int, attack, release, maxLength float64) (*SamplerSound, error) {
	if buf == nil || buf.Format == nil {
		return nil, errors.New("sampler: buffer has no format")
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("sampler: invalid source sample rate %d", buf.Format.SampleRate)
	}
	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("sampler: invalid channel count %d", channels)
	}
	frames := buf.NumFrames()
	if frames == 0 {
		return nil, errors.New("sampler: buffer is empty")
	}
	if limit := int(maxLength * float64(buf.Format.SampleRate)); maxLength > 0 && frames > limit {
		frames = limit
	}

	s := &SamplerSound{
		name:       name,
		left:       make([]float32, frames),
		sourceRate: float64(buf.Format.SampleRate),
		rootNote:   rootNote,
		attack:     attack,
		release:    release,
	}
	if channels > 1 {
		s.right = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		s.left[i] = buf.Data[i*channels]
		if s.right != nil {
			s.right[i] = buf.Data[i*channels+1]
		}
	}
	return s, nil
}

func (s *SamplerSound) AppliesToNote(note int) bool { return note >= 0 && note <= 127 }
func (s *SamplerSound) AppliesToChannel(int) bool   { return true }

// Name returns the name the sound was created with.
func (s *SamplerSound) Name() string { return s.name }

// Length returns the sample length in frames.
func (s *SamplerSound) Length() int { return len(s.left) }

// RootNote returns the note at which the sample plays at its recorded pitch.
func (s *SamplerSound) RootNote() int { return s.rootNote }

// SourceRate returns the sample rate of the stored data.
func (s *SamplerSound) SourceRate() float64 { return s.sourceRate }

// SamplerVoice plays a SamplerSound with linear interpolation and an
// attack/release envelope. Mono output receives the average of both sides.
type SamplerVoice struct {
	sampleRate float64
	sound      *SamplerSound
	note       int
	pitchRatio float64
	position   float64 // Source frame, fractional.
	gain       float32
	env        Envelope
}

var _ Voice = (*SamplerVoice)(nil)

// NewSamplerVoice returns an idle voice rendering at sampleRate.
func NewSamplerVoice(sampleRate float64) *SamplerVoice {
	v := &SamplerVoice{sampleRate: sampleRate, note: -1}
	v.env.SetSampleRate(sampleRate)
	return v
}

func (v *SamplerVoice) CanPlaySound(sound Sound) bool {
	s, ok := sound.(*SamplerSound)
	return ok && s != nil
}

func (v *SamplerVoice) SetSampleRate(rate float64) {
	v.sampleRate = rate
	v.env.SetSampleRate(rate)
}

func (v *SamplerVoice) StartNote(note int, velocity float32, sound Sound, _ int) {
	s, ok := sound.(*SamplerSound)
	if !ok || s == nil {
		return
	}
	v.sound = s
	v.note = note
	v.pitchRatio = math.Pow(2, float64(note-s.rootNote)/12) * s.sourceRate / v.sampleRate
	v.position = 0
	v.gain = velocity

	v.env.SetParameters(s.attack, s.release)
	v.env.NoteOn()
}

func (v *SamplerVoice) StopNote(_ float32, allowTailOff bool) {
	if allowTailOff {
		v.env.NoteOff()
		return
	}
	v.clear()
}

func (v *SamplerVoice) RenderNextBlock(buf *audio.Float32Buffer, start, n int) {
	s := v.sound
	if s == nil || v.note < 0 {
		return
	}
	channels := numChannels(buf)
	data := buf.Data
	last := len(s.left) - 1

	for i := start; i < start+n; i++ {
		pos := int(v.position)
		alpha := float32(v.position - float64(pos))
		inv := 1 - alpha
		next := pos + 1
		if next > last {
			next = last
		}

		l := s.left[pos]*inv + s.left[next]*alpha
		r := l
		if s.right != nil {
			r = s.right[pos]*inv + s.right[next]*alpha
		}

		g := v.env.Next() * v.gain
		l *= g
		r *= g

		base := i * channels
		if channels == 1 {
			data[base] += (l + r) * 0.5
		} else {
			data[base] += l
			data[base+1] += r
		}

		v.position += v.pitchRatio
		if v.position > float64(last) || !v.env.Active() {
			v.clear()
			return
		}
	}
}

func (v *SamplerVoice) Note() int    { return v.note }
func (v *SamplerVoice) Active() bool { return v.note >= 0 }

func (v *SamplerVoice) clear() {
	v.note = -1
	v.sound = nil
	v.env.Reset()
}
