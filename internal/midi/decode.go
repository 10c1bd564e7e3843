// SPDX-License-Identifier: MIT

// Package midi turns MIDI channel messages and Standard MIDI Files into
// synth events.
package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"

	"synthscope/internal/synth"
)

// Controller numbers handled by Decode.
const (
	ControllerSustain     = 64
	ControllerAllSoundOff = 120
	ControllerAllNotesOff = 123
)

// Decode converts one channel message into a synth event. MIDI channels 0..15
// become 1..16 and 7-bit velocities are scaled to [0, 1]. Messages the synth
// has no use for report false.
func Decode(msg gomidi.Message) (synth.Event, bool) {
	var ch, key, vel, cc, val uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return synth.NoteOn(int(ch)+1, int(key), velocity(vel)), true
	case msg.GetNoteOff(&ch, &key, &vel):
		return synth.NoteOff(int(ch)+1, int(key), velocity(vel)), true
	case msg.GetNoteEnd(&ch, &key):
		// Note-on with zero velocity.
		return synth.NoteOff(int(ch)+1, int(key), 0), true
	case msg.GetControlChange(&ch, &cc, &val):
		switch cc {
		case ControllerSustain:
			return synth.Sustain(int(ch)+1, val >= 64), true
		case ControllerAllSoundOff:
			return synth.AllNotesOff(int(ch)+1, false), true
		case ControllerAllNotesOff:
			return synth.AllNotesOff(int(ch)+1, true), true
		}
	case msg.GetPitchBend(&ch, &rel, &abs):
		return synth.PitchWheel(int(ch)+1, int(abs)), true
	}
	return synth.Event{}, false
}

// Encode is the inverse of Decode for the events a MIDI file can carry.
func Encode(ev synth.Event) (gomidi.Message, bool) {
	if ev.Channel < 1 || ev.Channel > 16 {
		return nil, false
	}
	ch := uint8(ev.Channel - 1)
	switch ev.Type {
	case synth.EventNoteOn:
		return gomidi.NoteOn(ch, uint8(ev.Note&0x7f), sevenBit(ev.Velocity)), true
	case synth.EventNoteOff:
		return gomidi.NoteOffVelocity(ch, uint8(ev.Note&0x7f), sevenBit(ev.Velocity)), true
	case synth.EventSustain:
		var v uint8
		if ev.Down {
			v = 127
		}
		return gomidi.ControlChange(ch, ControllerSustain, v), true
	case synth.EventPitchWheel:
		return gomidi.Pitchbend(ch, int16(ev.Value-synth.PitchWheelCentre)), true
	case synth.EventAllNotesOff:
		if ev.AllowTailOff {
			return gomidi.ControlChange(ch, ControllerAllNotesOff, 0), true
		}
		return gomidi.ControlChange(ch, ControllerAllSoundOff, 0), true
	}
	return nil, false
}

func velocity(v uint8) float32 {
	return float32(v) / 127
}

func sevenBit(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 127
	}
	return uint8(v*127 + 0.5)
}
