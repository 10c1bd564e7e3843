// SPDX-License-Identifier: MIT
package synth

import (
	"fmt"
	"math"
	"strings"
)

// Sound describes something a Voice can play. The Synth only starts a note
// with a sound that applies to that note and channel.
type Sound interface {
	AppliesToNote(note int) bool
	AppliesToChannel(channel int) bool
}

// SoundKind selects which of the Synth's sounds is active.
type SoundKind int32

const (
	SoundSine SoundKind = iota
	SoundSampled
)

func (k SoundKind) String() string {
	switch k {
	case SoundSine:
		return "sine"
	case SoundSampled:
		return "sampler"
	default:
		return "unknown"
	}
}

// ParseSoundKind converts a config name (case-insensitive) to a SoundKind.
func ParseSoundKind(name string) (SoundKind, error) {
	switch strings.ToLower(name) {
	case "sine":
		return SoundSine, nil
	case "sampler", "sampled", "sample":
		return SoundSampled, nil
	default:
		return SoundSine, fmt.Errorf("unknown sound %q", name)
	}
}

// SineSound is the marker sound played by SineVoice. It applies to every
// note on every channel.
type SineSound struct{}

func (SineSound) AppliesToNote(int) bool    { return true }
func (SineSound) AppliesToChannel(int) bool { return true }

var _ Sound = SineSound{}

// NoteHz converts a MIDI note number to its equal-tempered frequency with
// A4 (note 69) at 440 Hz. Any note value is accepted.
func NoteHz(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}
