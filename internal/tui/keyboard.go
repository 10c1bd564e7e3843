package tui

import (
	"strconv"
	"strings"
)

// pianoKeys lays a chromatic run over the home row, black keys on the row
// above: a=C, w=C#, s=D ... '=F an octave up.
const pianoKeys = "awsedftgyhujkolp;'"

// Octave limits relative to the base note.
const (
	MinOctave = -4
	MaxOctave = 4
)

// DefaultBaseNote is middle C.
const DefaultBaseNote = 60

// KeyNote returns the note a key plays at the given octave shift.
func KeyNote(key string, baseNote, octave int) (int, bool) {
	if len(key) != 1 {
		return 0, false
	}
	i := strings.IndexByte(pianoKeys, key[0])
	if i < 0 {
		return 0, false
	}
	note := baseNote + octave*12 + i
	if note < 0 || note > 127 {
		return 0, false
	}
	return note, true
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName formats a note as name and octave, MIDI 60 being C4.
func NoteName(note int) string {
	if note < 0 {
		return "?"
	}
	return noteNames[note%12] + strconv.Itoa(note/12-1)
}
