// SPDX-License-Identifier: MIT
package midi

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"go.uber.org/goleak"

	"synthscope/internal/synth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		msg  gomidi.Message
		want synth.Event
	}{
		{"note on", gomidi.NoteOn(0, 60, 127), synth.NoteOn(1, 60, 1)},
		{"note on last channel", gomidi.NoteOn(15, 69, 0x40), synth.NoteOn(16, 69, 64.0/127)},
		{"note off", gomidi.NoteOffVelocity(2, 61, 127), synth.NoteOff(3, 61, 1)},
		{"note on zero velocity", gomidi.NoteOn(0, 62, 0), synth.NoteOff(1, 62, 0)},
		{"sustain down", gomidi.ControlChange(0, ControllerSustain, 127), synth.Sustain(1, true)},
		{"sustain up", gomidi.ControlChange(0, ControllerSustain, 63), synth.Sustain(1, false)},
		{"all notes off", gomidi.ControlChange(4, ControllerAllNotesOff, 0), synth.AllNotesOff(5, true)},
		{"all sound off", gomidi.ControlChange(4, ControllerAllSoundOff, 0), synth.AllNotesOff(5, false)},
		{"pitch bend centre", gomidi.Pitchbend(0, 0), synth.PitchWheel(1, synth.PitchWheelCentre)},
		{"pitch bend up", gomidi.Pitchbend(0, 8191), synth.PitchWheel(1, 16383)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(tt.msg)
			require.True(t, ok)
			assert.Equal(t, tt.want.Type, got.Type)
			assert.Equal(t, tt.want.Channel, got.Channel)
			assert.Equal(t, tt.want.Note, got.Note)
			assert.InDelta(t, tt.want.Velocity, got.Velocity, 1e-6)
			assert.Equal(t, tt.want.Down, got.Down)
			assert.Equal(t, tt.want.Value, got.Value)
			assert.Equal(t, tt.want.AllowTailOff, got.AllowTailOff)
		})
	}
}

func TestDecodeIgnoresUnusedMessages(t *testing.T) {
	for _, msg := range []gomidi.Message{
		gomidi.ProgramChange(0, 5),
		gomidi.ControlChange(0, 7, 100),
		gomidi.AfterTouch(0, 10),
	} {
		_, ok := Decode(msg)
		assert.False(t, ok, msg.String())
	}
}

func TestEncodeDecodeAgree(t *testing.T) {
	events := []synth.Event{
		synth.NoteOn(2, 64, 1),
		synth.NoteOff(2, 64, 0.5),
		synth.Sustain(9, true),
		synth.PitchWheel(1, 1000),
		synth.AllNotesOff(3, true),
	}
	for _, ev := range events {
		msg, ok := Encode(ev)
		require.True(t, ok, ev.String())
		got, ok := Decode(msg)
		require.True(t, ok, ev.String())
		assert.Equal(t, ev.Type, got.Type)
		assert.Equal(t, ev.Channel, got.Channel)
		assert.InDelta(t, ev.Velocity, got.Velocity, 0.01)
	}

	_, ok := Encode(synth.AllNotesOff(0, true))
	assert.False(t, ok, "channel 0 has no MIDI encoding")
	_, ok = Encode(synth.SelectSound(synth.SoundSampled))
	assert.False(t, ok)
}

// writeSMF builds a two-track file at 120 bpm, 960 ticks per quarter note.
func writeSMF(t *testing.T) []byte {
	t.Helper()

	var tempo smf.Track
	tempo.Add(0, smf.MetaTempo(120))
	tempo.Close(0)

	var notes smf.Track
	notes.Add(0, gomidi.NoteOn(0, 60, 100))
	notes.Add(960, gomidi.NoteOff(0, 60))            // 0.5 s
	notes.Add(0, gomidi.ProgramChange(0, 3))         // skipped
	notes.Add(480, gomidi.ControlChange(0, 64, 127)) // 0.75 s
	notes.Close(0)

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(960)
	require.NoError(t, sm.Add(tempo))
	require.NoError(t, sm.Add(notes))

	var buf bytes.Buffer
	_, err := sm.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestRead(t *testing.T) {
	seq, err := Read(bytes.NewReader(writeSMF(t)))
	require.NoError(t, err)
	require.Len(t, seq, 3)

	assert.Equal(t, synth.EventNoteOn, seq[0].Event.Type)
	assert.Equal(t, time.Duration(0), seq[0].Time)
	assert.Equal(t, synth.EventNoteOff, seq[1].Event.Type)
	assert.InDelta(t, 500*time.Millisecond, seq[1].Time, float64(time.Millisecond))
	assert.Equal(t, synth.EventSustain, seq[2].Event.Type)
	assert.InDelta(t, 750*time.Millisecond, seq[2].Time, float64(time.Millisecond))
	assert.Equal(t, seq[2].Time, seq.Length())
}

func TestReadInvalid(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not a midi file")))
	assert.Error(t, err)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(t.TempDir() + "/missing.mid")
	assert.Error(t, err)
}

func TestWriteThenRead(t *testing.T) {
	in := Sequence{
		{Time: 0, Event: synth.NoteOn(1, 60, 1)},
		{Time: 250 * time.Millisecond, Event: synth.NoteOn(1, 64, 1)},
		{Time: time.Second, Event: synth.AllNotesOff(1, true)},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in, 90))

	out, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].Event.Type, out[i].Event.Type)
		assert.InDelta(t, in[i].Time, out[i].Time, float64(time.Millisecond))
	}

	assert.Error(t, Write(&buf, in, 0))
}

func TestCursor(t *testing.T) {
	seq := Sequence{
		{Time: 0, Event: synth.NoteOn(1, 60, 1)},
		{Time: 10 * time.Millisecond, Event: synth.NoteOn(1, 62, 1)},
		{Time: 20 * time.Millisecond, Event: synth.NoteOn(1, 64, 1)},
	}
	c := NewCursor(seq)

	var got []int
	collect := func(ev synth.Event) { got = append(got, ev.Note) }

	c.Until(5*time.Millisecond, collect)
	assert.Equal(t, []int{60}, got)
	c.Until(5*time.Millisecond, collect)
	assert.Equal(t, []int{60}, got)
	c.Until(20*time.Millisecond, collect)
	assert.Equal(t, []int{60, 62, 64}, got)
	assert.True(t, c.Done())

	c.Reset()
	assert.False(t, c.Done())
}

type recordingSink struct {
	mu     sync.Mutex
	events []synth.Event
}

func (r *recordingSink) Post(ev synth.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *recordingSink) Events() []synth.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]synth.Event(nil), r.events...)
}

func TestPlayerPlaysToEnd(t *testing.T) {
	seq := Sequence{
		{Time: 0, Event: synth.NoteOn(1, 60, 1)},
		{Time: 20 * time.Millisecond, Event: synth.NoteOff(1, 60, 0)},
	}
	sink := &recordingSink{}
	p := NewPlayer(seq, sink, false)
	p.Start()
	p.Start()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("player did not finish")
	}
	p.Stop()

	events := sink.Events()
	require.Len(t, events, 3)
	assert.Equal(t, synth.EventNoteOn, events[0].Type)
	assert.Equal(t, synth.EventNoteOff, events[1].Type)
	assert.Equal(t, synth.EventAllNotesOff, events[2].Type)
}

func TestPlayerStopWhileLooping(t *testing.T) {
	seq := Sequence{{Time: time.Millisecond, Event: synth.NoteOn(1, 60, 1)}}
	sink := &recordingSink{}
	p := NewPlayer(seq, sink, true)
	p.Start()

	require.Eventually(t, func() bool { return len(sink.Events()) >= 3 }, 2*time.Second, time.Millisecond)
	p.Stop()
	p.Stop()

	events := sink.Events()
	assert.Equal(t, synth.EventAllNotesOff, events[len(events)-1].Type)
	_, open := <-p.Done()
	assert.False(t, open)
}
