// SPDX-License-Identifier: MIT
package synth

import "fmt"

// EventType identifies what an Event does to the Synth.
type EventType uint8

const (
	EventNoteOn EventType = iota + 1
	EventNoteOff
	EventSustain
	EventPitchWheel
	EventAllNotesOff
	EventSelectSound
)

func (t EventType) String() string {
	switch t {
	case EventNoteOn:
		return "note-on"
	case EventNoteOff:
		return "note-off"
	case EventSustain:
		return "sustain"
	case EventPitchWheel:
		return "pitch-wheel"
	case EventAllNotesOff:
		return "all-notes-off"
	case EventSelectSound:
		return "select-sound"
	default:
		return "unknown"
	}
}

// Event is a performance event for the Synth. Channels are 1..16; a zero
// Channel on EventAllNotesOff addresses every channel.
type Event struct {
	Type         EventType
	Channel      int
	Note         int
	Velocity     float32 // [0, 1]
	AllowTailOff bool    // Note-off and all-notes-off only.
	Down         bool    // Sustain pedal state.
	Value        int     // Pitch wheel, 0..16383.
	Sound        SoundKind
}

func (e Event) String() string {
	switch e.Type {
	case EventNoteOn:
		return fmt.Sprintf("%s ch=%d note=%d vel=%.2f", e.Type, e.Channel, e.Note, e.Velocity)
	case EventNoteOff:
		return fmt.Sprintf("%s ch=%d note=%d tail=%v", e.Type, e.Channel, e.Note, e.AllowTailOff)
	case EventSustain:
		return fmt.Sprintf("%s ch=%d down=%v", e.Type, e.Channel, e.Down)
	case EventPitchWheel:
		return fmt.Sprintf("%s ch=%d value=%d", e.Type, e.Channel, e.Value)
	case EventAllNotesOff:
		return fmt.Sprintf("%s ch=%d", e.Type, e.Channel)
	case EventSelectSound:
		return fmt.Sprintf("%s %s", e.Type, e.Sound)
	default:
		return e.Type.String()
	}
}

// NoteOn returns a note-on event.
func NoteOn(channel, note int, velocity float32) Event {
	return Event{Type: EventNoteOn, Channel: channel, Note: note, Velocity: velocity}
}

// NoteOff returns a note-off event that lets the voice fade out.
func NoteOff(channel, note int, velocity float32) Event {
	return Event{Type: EventNoteOff, Channel: channel, Note: note, Velocity: velocity, AllowTailOff: true}
}

// Sustain returns a sustain pedal event.
func Sustain(channel int, down bool) Event {
	return Event{Type: EventSustain, Channel: channel, Down: down}
}

// PitchWheel returns a pitch wheel event.
func PitchWheel(channel, value int) Event {
	return Event{Type: EventPitchWheel, Channel: channel, Value: value}
}

// AllNotesOff returns an all-notes-off event; channel 0 means every channel.
func AllNotesOff(channel int, allowTailOff bool) Event {
	return Event{Type: EventAllNotesOff, Channel: channel, AllowTailOff: allowTailOff}
}

// SelectSound returns an event that switches the active sound.
func SelectSound(kind SoundKind) Event {
	return Event{Type: EventSelectSound, Sound: kind}
}
