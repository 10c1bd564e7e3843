// SPDX-License-Identifier: MIT
//
// Package synth is a polyphonic voice pool: sine oscillators and a sample
// player mixed into interleaved float32 blocks. Everything reachable from
// Render runs on the audio goroutine and never allocates or blocks; other
// goroutines talk to the Synth only through Post.
package synth

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-audio/audio"
)

const (
	// QueueCapacity is the number of events Post can buffer between blocks.
	QueueCapacity = 256

	minChannel = 1
	maxChannel = 16
	maxNote    = 127
	maxWheel   = 16383
)

// ErrNoSampledSound is returned when the sampler sound is requested but none
// was loaded.
var ErrNoSampledSound = errors.New("synth: no sampled sound loaded")

// Options configures a Synth.
type Options struct {
	SampleRate    float64
	Voices        int           // Voices per sound.
	Gain          float64       // Applied to the mix.
	VoiceStealing bool          // Reuse the oldest voice when all are busy.
	Sampled       *SamplerSound // Optional; enables SoundSampled.
	Sound         SoundKind     // Initially active sound.
}

type voiceSlot struct {
	voice     Voice
	onTime    uint64
	channel   int
	keyDown   bool
	sustained bool
}

// Synth owns a fixed pool of voices and routes events to them.
type Synth struct {
	slots      []voiceSlot
	sampled    *SamplerSound
	active     Sound
	sampleRate float64
	gain       float32
	stealing   bool
	clock      uint64

	sustainDown [maxChannel + 1]bool
	pitchWheel  [maxChannel + 1]int

	events       chan Event
	dropped      atomic.Uint64
	activeVoices atomic.Int32
	current      atomic.Int32
}

// New builds a Synth with opts.Voices sine voices and, when a sampled sound
// is supplied, as many sampler voices.
func New(opts Options) (*Synth, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("synth: sample rate must be positive, got %g", opts.SampleRate)
	}
	if opts.Voices < 1 {
		return nil, fmt.Errorf("synth: need at least one voice, got %d", opts.Voices)
	}
	if opts.Gain < 0 {
		return nil, fmt.Errorf("synth: gain must not be negative, got %g", opts.Gain)
	}
	if opts.Sound == SoundSampled && opts.Sampled == nil {
		return nil, ErrNoSampledSound
	}

	s := &Synth{
		sampled:    opts.Sampled,
		sampleRate: opts.SampleRate,
		gain:       float32(opts.Gain),
		stealing:   opts.VoiceStealing,
		events:     make(chan Event, QueueCapacity),
	}
	for i := 0; i < opts.Voices; i++ {
		s.slots = append(s.slots, voiceSlot{voice: NewSineVoice(opts.SampleRate)})
	}
	if opts.Sampled != nil {
		for i := 0; i < opts.Voices; i++ {
			s.slots = append(s.slots, voiceSlot{voice: NewSamplerVoice(opts.SampleRate)})
		}
	}
	for ch := range s.pitchWheel {
		s.pitchWheel[ch] = PitchWheelCentre
	}
	s.selectSound(opts.Sound)
	return s, nil
}

// SetSampleRate updates every voice. Call it before rendering starts.
func (s *Synth) SetSampleRate(rate float64) {
	s.sampleRate = rate
	for i := range s.slots {
		s.slots[i].voice.SetSampleRate(rate)
	}
}

// SampleRate returns the rate voices render at.
func (s *Synth) SampleRate() float64 { return s.sampleRate }

// Post queues ev for the next rendered block. It never blocks; false means
// the queue was full and the event was dropped.
func (s *Synth) Post(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Dropped returns how many posted events were discarded.
func (s *Synth) Dropped() uint64 { return s.dropped.Load() }

// ActiveVoices returns the number of sounding voices after the last block.
func (s *Synth) ActiveVoices() int { return int(s.activeVoices.Load()) }

// CurrentSound returns the sound new notes will use.
func (s *Synth) CurrentSound() SoundKind { return SoundKind(s.current.Load()) }

// HasSampledSound reports whether a sampler sound was loaded.
func (s *Synth) HasSampledSound() bool { return s.sampled != nil }

// UseSineSound switches new notes to the sine oscillator.
func (s *Synth) UseSineSound() bool {
	return s.Post(SelectSound(SoundSine))
}

// UseSampledSound switches new notes to the sampler.
func (s *Synth) UseSampledSound() error {
	if s.sampled == nil {
		return ErrNoSampledSound
	}
	if !s.Post(SelectSound(SoundSampled)) {
		return errors.New("synth: event queue full")
	}
	return nil
}

// Render drains pending events, clears buf and mixes every active voice
// into it.
func (s *Synth) Render(buf *audio.Float32Buffer) {
drain:
	for {
		select {
		case ev := <-s.events:
			s.Handle(ev)
		default:
			break drain
		}
	}
	clear(buf.Data)
	s.RenderRange(buf, 0, buf.NumFrames())
}

// RenderRange adds n frames of every active voice starting at frame start
// and applies the gain to that range. Queued events are not drained, so
// offline hosts can interleave Handle calls at exact frame positions.
func (s *Synth) RenderRange(buf *audio.Float32Buffer, start, n int) {
	if n <= 0 {
		return
	}
	var active int32
	for i := range s.slots {
		v := s.slots[i].voice
		if !v.Active() {
			continue
		}
		v.RenderNextBlock(buf, start, n)
		if v.Active() {
			active++
		}
	}
	s.activeVoices.Store(active)

	if s.gain != 1 {
		channels := numChannels(buf)
		seg := buf.Data[start*channels : (start+n)*channels]
		for i := range seg {
			seg[i] *= s.gain
		}
	}
}

// Handle applies ev immediately. It must only be called from the goroutine
// that renders. Events with out-of-range channels or notes are ignored.
func (s *Synth) Handle(ev Event) {
	ch := ev.Channel
	if ev.Type != EventSelectSound && (ch < minChannel || ch > maxChannel) {
		if !(ev.Type == EventAllNotesOff && ch == 0) {
			return
		}
	}

	switch ev.Type {
	case EventNoteOn:
		if ev.Note < 0 || ev.Note > maxNote {
			return
		}
		vel := clampUnit(ev.Velocity)
		if vel == 0 {
			s.noteOff(ch, ev.Note, 0, true)
			return
		}
		s.noteOn(ch, ev.Note, vel)
	case EventNoteOff:
		if ev.Note < 0 || ev.Note > maxNote {
			return
		}
		s.noteOff(ch, ev.Note, clampUnit(ev.Velocity), ev.AllowTailOff)
	case EventSustain:
		s.sustain(ch, ev.Down)
	case EventPitchWheel:
		s.pitchWheel[ch] = min(max(ev.Value, 0), maxWheel)
	case EventAllNotesOff:
		s.allNotesOff(ch, ev.AllowTailOff)
	case EventSelectSound:
		s.selectSound(ev.Sound)
	}
}

func (s *Synth) selectSound(kind SoundKind) {
	switch {
	case kind == SoundSampled && s.sampled != nil:
		s.active = s.sampled
	case kind == SoundSine:
		s.active = SineSound{}
	default:
		return
	}
	s.current.Store(int32(kind))
}

func (s *Synth) noteOn(ch, note int, vel float32) {
	sound := s.active
	if !sound.AppliesToNote(note) || !sound.AppliesToChannel(ch) {
		return
	}

	// Retriggering a note that is still ringing releases the old voice.
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.voice.Active() && sl.voice.Note() == note && sl.channel == ch {
			s.stopVoice(sl, 1, true)
		}
	}

	if sl := s.findFreeVoice(sound); sl != nil {
		s.startVoice(sl, sound, ch, note, vel)
	}
}

func (s *Synth) noteOff(ch, note int, vel float32, allowTailOff bool) {
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.voice.Active() || sl.voice.Note() != note || sl.channel != ch {
			continue
		}
		sl.keyDown = false
		if sl.sustained {
			continue
		}
		s.stopVoice(sl, vel, allowTailOff)
	}
}

func (s *Synth) sustain(ch int, down bool) {
	s.sustainDown[ch] = down
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.voice.Active() || sl.channel != ch {
			continue
		}
		if down {
			if sl.keyDown {
				sl.sustained = true
			}
			continue
		}
		sl.sustained = false
		if !sl.keyDown {
			s.stopVoice(sl, 1, true)
		}
	}
}

func (s *Synth) allNotesOff(ch int, allowTailOff bool) {
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.voice.Active() && (ch == 0 || sl.channel == ch) {
			sl.keyDown = false
			s.stopVoice(sl, 1, allowTailOff)
		}
	}
	if ch == 0 {
		s.sustainDown = [maxChannel + 1]bool{}
	} else {
		s.sustainDown[ch] = false
	}
}

func (s *Synth) findFreeVoice(sound Sound) *voiceSlot {
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.voice.Active() && sl.voice.CanPlaySound(sound) {
			return sl
		}
	}
	if !s.stealing {
		return nil
	}
	return s.findVoiceToSteal(sound)
}

// findVoiceToSteal prefers the oldest voice whose key is up and not held
// by the pedal, then the oldest voice of all.
func (s *Synth) findVoiceToSteal(sound Sound) *voiceSlot {
	var released, oldest *voiceSlot
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.voice.CanPlaySound(sound) {
			continue
		}
		if oldest == nil || sl.onTime < oldest.onTime {
			oldest = sl
		}
		if !sl.keyDown && !sl.sustained && (released == nil || sl.onTime < released.onTime) {
			released = sl
		}
	}
	if released != nil {
		return released
	}
	return oldest
}

func (s *Synth) startVoice(sl *voiceSlot, sound Sound, ch, note int, vel float32) {
	if sl.voice.Active() {
		sl.voice.StopNote(0, false)
	}
	s.clock++
	sl.onTime = s.clock
	sl.channel = ch
	sl.keyDown = true
	sl.sustained = s.sustainDown[ch]
	sl.voice.StartNote(note, vel, sound, s.pitchWheel[ch])
}

func (s *Synth) stopVoice(sl *voiceSlot, vel float32, allowTailOff bool) {
	sl.voice.StopNote(vel, allowTailOff)
}

func clampUnit(v float32) float32 {
	return min(max(v, 0), 1)
}
