// SPDX-License-Identifier: MIT
package synth

import "github.com/go-audio/audio"

// Voice renders one note of one Sound. Voices are owned by a Synth and are
// only touched from the goroutine that renders audio.
type Voice interface {
	// CanPlaySound reports whether the voice knows how to render sound.
	CanPlaySound(sound Sound) bool
	// StartNote begins playing note. velocity is in [0, 1]; pitchWheel is
	// the channel's last 14-bit wheel position.
	StartNote(note int, velocity float32, sound Sound, pitchWheel int)
	// StopNote releases the note. With allowTailOff the voice may keep
	// sounding while it fades; otherwise it must go silent immediately.
	StopNote(velocity float32, allowTailOff bool)
	// RenderNextBlock adds n frames starting at frame start into the
	// interleaved buffer. It must not allocate.
	RenderNextBlock(buf *audio.Float32Buffer, start, n int)
	// SetSampleRate is called by the host before rendering begins.
	SetSampleRate(rate float64)
	// Note returns the playing note, or -1 when idle.
	Note() int
	// Active reports whether the voice is producing sound.
	Active() bool
}

// PitchWheelCentre is the 14-bit pitch wheel rest position.
const PitchWheelCentre = 8192

// addFrame adds v to every channel of frame i.
func addFrame(data []float32, channels, i int, v float32) {
	base := i * channels
	for ch := 0; ch < channels; ch++ {
		data[base+ch] += v
	}
}

func numChannels(buf *audio.Float32Buffer) int {
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return 1
	}
	return buf.Format.NumChannels
}
