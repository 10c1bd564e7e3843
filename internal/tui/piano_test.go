package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"synthscope/internal/analysis"
	"synthscope/internal/synth"
)

type fakeInstrument struct {
	events  []synth.Event
	sound   synth.SoundKind
	sampled bool
	full    bool
}

func (f *fakeInstrument) Post(ev synth.Event) bool {
	if f.full {
		return false
	}
	f.events = append(f.events, ev)
	if ev.Type == synth.EventSelectSound {
		f.sound = ev.Sound
	}
	return true
}

func (f *fakeInstrument) CurrentSound() synth.SoundKind { return f.sound }
func (f *fakeInstrument) HasSampledSound() bool         { return f.sampled }
func (f *fakeInstrument) ActiveVoices() int             { return len(f.events) }
func (f *fakeInstrument) Dropped() uint64               { return 0 }

type fakeRecorder struct {
	recording bool
	name      string
	err       error
}

func (f *fakeRecorder) StartRecording(name string) error {
	if f.err != nil {
		return f.err
	}
	f.recording, f.name = true, name
	return nil
}

func (f *fakeRecorder) StopRecording() error {
	f.recording = false
	return nil
}

func (f *fakeRecorder) Recording() bool { return f.recording }

type fakeFrames struct{ frame *analysis.Frame }

func (f fakeFrames) Latest() *analysis.Frame { return f.frame }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestPiano(inst *fakeInstrument, rec Recorder) (PianoModel, *time.Time) {
	m := NewPianoModel(inst, nil, rec, DefaultPianoOptions())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func update(t *testing.T, m PianoModel, msg tea.Msg) (PianoModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	pm, ok := next.(PianoModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return pm, cmd
}

func TestPianoKeyPlaysNote(t *testing.T) {
	inst := &fakeInstrument{}
	m, _ := newTestPiano(inst, nil)

	m, _ = update(t, m, runes("a"))
	if len(inst.events) != 1 || inst.events[0].Type != synth.EventNoteOn || inst.events[0].Note != 60 {
		t.Fatalf("events = %v", inst.events)
	}
	// Key repeat keeps the note without retriggering it.
	m, _ = update(t, m, runes("a"))
	if len(inst.events) != 1 {
		t.Errorf("repeat retriggered: %v", inst.events)
	}
	if got := m.Held(); len(got) != 1 || got[0] != 60 {
		t.Errorf("Held() = %v", got)
	}
}

func TestPianoAutoRelease(t *testing.T) {
	inst := &fakeInstrument{}
	m, now := newTestPiano(inst, nil)
	m, _ = update(t, m, runes("a"))
	pressed := *now

	m, cmd := update(t, m, tickMsg(pressed.Add(DefaultReleaseAfter/2)))
	if cmd == nil {
		t.Error("tick must schedule the next tick")
	}
	if len(m.Held()) != 1 {
		t.Fatal("note released too early")
	}

	m, _ = update(t, m, tickMsg(pressed.Add(DefaultReleaseAfter)))
	if len(m.Held()) != 0 {
		t.Fatal("note not released")
	}
	last := inst.events[len(inst.events)-1]
	if last.Type != synth.EventNoteOff || last.Note != 60 || !last.AllowTailOff {
		t.Errorf("last event = %v", last)
	}
}

func TestPianoOctaveShift(t *testing.T) {
	inst := &fakeInstrument{}
	m, _ := newTestPiano(inst, nil)

	m, _ = update(t, m, runes("a"))
	m, _ = update(t, m, runes("x"))
	if m.Octave() != 1 {
		t.Fatalf("Octave() = %d", m.Octave())
	}
	if len(m.Held()) != 0 {
		t.Error("octave change should release held notes")
	}
	m, _ = update(t, m, runes("a"))
	if last := inst.events[len(inst.events)-1]; last.Note != 72 {
		t.Errorf("note = %d, want 72", last.Note)
	}

	for range 10 {
		m, _ = update(t, m, runes("z"))
	}
	if m.Octave() != MinOctave {
		t.Errorf("Octave() = %d, want %d", m.Octave(), MinOctave)
	}
}

func TestPianoToggleSound(t *testing.T) {
	inst := &fakeInstrument{}
	m, _ := newTestPiano(inst, nil)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if inst.sound != synth.SoundSine || !strings.Contains(m.Status(), "No sample") {
		t.Errorf("without a sample the sound must stay sine, status %q", m.Status())
	}

	inst.sampled = true
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if inst.sound != synth.SoundSampled {
		t.Errorf("sound = %v, want sampled", inst.sound)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if inst.sound != synth.SoundSine {
		t.Errorf("sound = %v, want sine", inst.sound)
	}
}

func TestPianoPanicAndQuit(t *testing.T) {
	inst := &fakeInstrument{}
	rec := &fakeRecorder{recording: true}
	m, _ := newTestPiano(inst, rec)

	m, _ = update(t, m, runes("a"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if last := inst.events[len(inst.events)-1]; last.Type != synth.EventAllNotesOff || last.Channel != 0 {
		t.Errorf("last event = %v", last)
	}
	if len(m.Held()) != 0 {
		t.Error("panic must clear held notes")
	}

	m, _ = update(t, m, runes("s"))
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if last := inst.events[len(inst.events)-1]; last.Type != synth.EventNoteOff {
		t.Errorf("quit must release held notes, last = %v", last)
	}
	if rec.recording {
		t.Error("quit must stop recording")
	}
}

func TestPianoRecording(t *testing.T) {
	rec := &fakeRecorder{}
	m, _ := newTestPiano(&fakeInstrument{}, rec)

	m, _ = update(t, m, runes("r"))
	if !rec.recording || !strings.HasSuffix(rec.name, "synthscope-20240101-120000.wav") {
		t.Errorf("recording = %v, name %q", rec.recording, rec.name)
	}
	m, _ = update(t, m, runes("r"))
	if rec.recording {
		t.Error("second r should stop recording")
	}

	rec.err = errors.New("disk full")
	m, _ = update(t, m, runes("r"))
	if m.err == nil {
		t.Error("expected error to be shown")
	}

	m2, _ := newTestPiano(&fakeInstrument{}, nil)
	m2, _ = update(t, m2, runes("r"))
	if m2.Status() != "Recording unavailable" {
		t.Errorf("Status() = %q", m2.Status())
	}
}

func TestPianoQueueFull(t *testing.T) {
	inst := &fakeInstrument{full: true}
	m, _ := newTestPiano(inst, nil)
	m, _ = update(t, m, runes("a"))
	if len(m.Held()) != 0 || m.Status() != "Event queue full" {
		t.Errorf("held %v, status %q", m.Held(), m.Status())
	}
}

func TestPianoView(t *testing.T) {
	inst := &fakeInstrument{}
	frames := fakeFrames{frame: &analysis.Frame{
		Scope:    []float32{0, 0.5, 1, 0.5},
		Waveform: []float32{0.1, 0.9},
		Bands:    []analysis.BandLevel{{Name: "bass", Level: 0.7}},
	}}
	m := NewPianoModel(inst, frames, &fakeRecorder{recording: true}, DefaultPianoOptions())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 30})
	m, _ = update(t, m, runes("a"))

	view := m.View()
	for _, want := range []string{"synthscope", "sound sine", "octave +0", "REC", "bass", "playing: C4", "█"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	empty := NewPianoModel(inst, nil, nil, PianoOptions{})
	if !strings.Contains(empty.View(), "keys: "+pianoKeys) {
		t.Error("idle view should list the keys")
	}
}
