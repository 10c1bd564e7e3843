// SPDX-License-Identifier: MIT
package synth

import (
	"math"
	"testing"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 44100.0

func newBuffer(channels, frames int) *audio.Float32Buffer {
	return &audio.Float32Buffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: int(testRate)},
		Data:   make([]float32, channels*frames),
	}
}

func TestNoteHz(t *testing.T) {
	tests := []struct {
		note int
		want float64
	}{
		{69, 440},
		{81, 880},
		{57, 220},
		{60, 261.6255653005986},
		{0, 8.175798915643707},
		{127, 12543.853951415975},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NoteHz(tt.note), 1e-9, "note %d", tt.note)
	}
}

func TestSineVoiceIncrementForAllNotes(t *testing.T) {
	v := NewSineVoice(testRate)
	for note := 0; note <= 127; note++ {
		v.StartNote(note, 1, SineSound{}, PitchWheelCentre)
		want := 2 * math.Pi * 440 * math.Pow(2, float64(note-69)/12) / testRate
		require.InDelta(t, want, v.Increment(), 1e-12, "note %d", note)
		require.Equal(t, note, v.Note())
		require.Zero(t, v.Phase())
		require.Zero(t, v.TailOff())
	}
}

func TestSineVoiceA4PhaseAfter100Samples(t *testing.T) {
	v := NewSineVoice(testRate)
	v.StartNote(69, 1, SineSound{}, PitchWheelCentre)

	assert.InDelta(t, 2*math.Pi*440/testRate, v.Increment(), 1e-12)
	assert.InDelta(t, 0.0627, v.Increment(), 1e-4)

	buf := newBuffer(1, 100)
	v.RenderNextBlock(buf, 0, 100)

	// 100 samples of 440 Hz at 44.1 kHz is just under one cycle.
	assert.InDelta(t, 2*math.Pi, v.Phase(), 0.02)
	assert.InDelta(t, 100*v.Increment(), v.Phase(), 1e-9)
}

func TestSineVoiceLevelFromVelocity(t *testing.T) {
	v := NewSineVoice(testRate)
	v.StartNote(69, 0.8, SineSound{}, PitchWheelCentre)
	assert.InDelta(t, 0.8*LevelScale, v.Level(), 1e-7)

	buf := newBuffer(1, 4410)
	v.RenderNextBlock(buf, 0, 4410)

	var peak float32
	for _, s := range buf.Data {
		peak = max(peak, s)
	}
	assert.InDelta(t, 0.12, peak, 1e-3)
}

func TestSineVoiceSustainsWithoutRelease(t *testing.T) {
	v := NewSineVoice(testRate)
	v.StartNote(60, 1, SineSound{}, PitchWheelCentre)

	buf := newBuffer(2, 512)
	for range 200 {
		v.RenderNextBlock(buf, 0, 512)
	}

	assert.True(t, v.Active())
	assert.Zero(t, v.TailOff())
	assert.Equal(t, 60, v.Note())
}

func TestSineVoiceTailOff(t *testing.T) {
	v := NewSineVoice(testRate)
	v.StartNote(69, 1, SineSound{}, PitchWheelCentre)
	v.StopNote(0, true)
	require.Equal(t, 1.0, v.TailOff())
	require.True(t, v.Active())

	buf := newBuffer(1, 1)
	for k := 1; k <= 100; k++ {
		v.RenderNextBlock(buf, 0, 1)
		require.InDelta(t, math.Pow(TailOffFactor, float64(k)), v.TailOff(), 1e-12, "after %d samples", k)
	}

	// 0.99^k first drops to 0.005 or below at k = 528.
	rendered := 100
	for v.Active() {
		v.RenderNextBlock(buf, 0, 1)
		rendered++
		require.Less(t, rendered, 10000, "voice never went idle")
	}
	assert.Equal(t, 528, rendered)
	assert.Zero(t, v.Increment())
	assert.Zero(t, v.TailOff())
	assert.Equal(t, -1, v.Note())

	out := newBuffer(2, 256)
	v.RenderNextBlock(out, 0, 256)
	for i, s := range out.Data {
		require.Zero(t, s, "sample %d", i)
	}
}

func TestSineVoiceSecondReleaseKeepsDecay(t *testing.T) {
	v := NewSineVoice(testRate)
	v.StartNote(64, 1, SineSound{}, PitchWheelCentre)
	v.StopNote(0, true)
	v.RenderNextBlock(newBuffer(1, 10), 0, 10)

	before := v.TailOff()
	v.StopNote(0, true)
	assert.Equal(t, before, v.TailOff())
}

func TestSineVoiceHardStop(t *testing.T) {
	tests := []struct {
		name    string
		release bool
	}{
		{"While Sustaining", false},
		{"During Tail Off", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewSineVoice(testRate)
			v.StartNote(72, 1, SineSound{}, PitchWheelCentre)
			if tt.release {
				v.StopNote(0, true)
				v.RenderNextBlock(newBuffer(1, 32), 0, 32)
			}

			v.StopNote(0, false)

			assert.False(t, v.Active())
			assert.Equal(t, -1, v.Note())
			assert.Zero(t, v.Increment())

			buf := newBuffer(1, 64)
			v.RenderNextBlock(buf, 0, 64)
			for _, s := range buf.Data {
				require.Zero(t, s)
			}
		})
	}
}

func TestSineVoiceRestartResetsState(t *testing.T) {
	v := NewSineVoice(testRate)
	v.StartNote(60, 1, SineSound{}, PitchWheelCentre)
	v.StopNote(0, true)
	v.RenderNextBlock(newBuffer(1, 50), 0, 50)

	v.StartNote(67, 0.5, SineSound{}, PitchWheelCentre)
	assert.Zero(t, v.Phase())
	assert.Zero(t, v.TailOff())
	assert.Equal(t, 67, v.Note())
}

func TestSineVoiceWritesEveryChannelAtOffset(t *testing.T) {
	v := NewSineVoice(testRate)
	v.StartNote(69, 1, SineSound{}, PitchWheelCentre)

	buf := newBuffer(2, 64)
	v.RenderNextBlock(buf, 16, 32)

	for i := 0; i < 64; i++ {
		l, r := buf.Data[2*i], buf.Data[2*i+1]
		require.Equal(t, l, r, "frame %d", i)
		if i < 16 || i >= 48 {
			require.Zero(t, l, "frame %d outside rendered range", i)
		}
	}
	// First rendered sample is sin(0); the next is not.
	assert.Zero(t, buf.Data[32])
	assert.NotZero(t, buf.Data[34])
}

func TestSineVoiceAddsToExistingContent(t *testing.T) {
	v := NewSineVoice(testRate)
	v.StartNote(69, 1, SineSound{}, PitchWheelCentre)

	buf := newBuffer(1, 8)
	for i := range buf.Data {
		buf.Data[i] = 1
	}
	v.RenderNextBlock(buf, 0, 8)
	assert.Equal(t, float32(1), buf.Data[0])
	assert.Greater(t, buf.Data[1], float32(1))
}

func TestSineVoiceCanPlaySound(t *testing.T) {
	v := NewSineVoice(testRate)
	assert.True(t, v.CanPlaySound(SineSound{}))
	assert.True(t, v.CanPlaySound(&SineSound{}))
	assert.False(t, v.CanPlaySound(&SamplerSound{}))
	assert.False(t, v.CanPlaySound(nil))
}

func TestSineVoiceRenderDoesNotAllocate(t *testing.T) {
	v := NewSineVoice(testRate)
	v.StartNote(69, 1, SineSound{}, PitchWheelCentre)
	buf := newBuffer(2, 512)

	allocs := testing.AllocsPerRun(100, func() {
		v.RenderNextBlock(buf, 0, 512)
	})
	assert.Zero(t, allocs)
}

func BenchmarkSineVoiceRender(b *testing.B) {
	v := NewSineVoice(testRate)
	v.StartNote(69, 1, SineSound{}, PitchWheelCentre)
	buf := newBuffer(2, 512)

	b.ReportAllocs()
	for b.Loop() {
		v.RenderNextBlock(buf, 0, 512)
	}
}
