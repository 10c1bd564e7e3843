package tui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"synthscope/internal/analysis"
	"synthscope/internal/audio"
	"synthscope/internal/synth"
)

// Instrument is the synth as seen from the keyboard. *synth.Synth
// implements it.
type Instrument interface {
	Post(ev synth.Event) bool
	CurrentSound() synth.SoundKind
	HasSampledSound() bool
	ActiveVoices() int
	Dropped() uint64
}

// FrameSource supplies analyser frames. *analysis.Refresher implements it.
type FrameSource interface {
	Latest() *analysis.Frame
}

// Recorder is the optional live recorder.
type Recorder interface {
	StartRecording(filename string) error
	StopRecording() error
	Recording() bool
}

var (
	_ Instrument  = (*synth.Synth)(nil)
	_ FrameSource = (*analysis.Refresher)(nil)
)

// Terminals report key presses but not releases. A held key repeats, so a
// note is released once its key has been quiet for ReleaseAfter.
const (
	DefaultReleaseAfter = 350 * time.Millisecond
	DefaultFrameRate    = 30
)

type pianoKeyMap struct {
	OctaveDown key.Binding
	OctaveUp   key.Binding
	Sound      key.Binding
	Panic      key.Binding
	Record     key.Binding
	Quit       key.Binding
}

func (k pianoKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.OctaveDown, k.OctaveUp, k.Sound, k.Panic, k.Record, k.Quit}
}

func (k pianoKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultPianoKeyMap = pianoKeyMap{
	OctaveDown: key.NewBinding(key.WithKeys("z", "down"), key.WithHelp("z", "octave down")),
	OctaveUp:   key.NewBinding(key.WithKeys("x", "up"), key.WithHelp("x", "octave up")),
	Sound:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "sine/sampler")),
	Panic:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "all notes off")),
	Record:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record")),
	Quit:       key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

// PianoOptions configures a PianoModel.
type PianoOptions struct {
	Channel      int           // MIDI channel notes are sent on, 1..16.
	BaseNote     int           // Note of the 'a' key at octave 0.
	Velocity     float32       // Note-on velocity.
	ReleaseAfter time.Duration // Auto-release delay.
	FrameRate    int           // Redraws per second.
	RecordingDir string
}

// DefaultPianoOptions plays middle C on channel 1 at full velocity.
func DefaultPianoOptions() PianoOptions {
	return PianoOptions{
		Channel:      1,
		BaseNote:     DefaultBaseNote,
		Velocity:     1,
		ReleaseAfter: DefaultReleaseAfter,
		FrameRate:    DefaultFrameRate,
		RecordingDir: ".",
	}
}

type tickMsg time.Time

// PianoModel is the Bubble Tea model for the terminal keyboard with the live
// spectrum and waveform.
type PianoModel struct {
	instrument Instrument
	frames     FrameSource
	recorder   Recorder
	opts       PianoOptions

	octave int
	held   map[int]time.Time // Note -> last key press.
	status string
	err    error

	width  int
	height int
	keys   pianoKeyMap
	help   help.Model
	meter  progress.Model
	now    func() time.Time
}

// NewPianoModel creates the keyboard model. frames and recorder may be nil.
func NewPianoModel(instrument Instrument, frames FrameSource, recorder Recorder, opts PianoOptions) PianoModel {
	if opts.ReleaseAfter <= 0 {
		opts.ReleaseAfter = DefaultReleaseAfter
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.Channel < 1 || opts.Channel > 16 {
		opts.Channel = 1
	}
	return PianoModel{
		instrument: instrument,
		frames:     frames,
		recorder:   recorder,
		opts:       opts,
		held:       make(map[int]time.Time),
		width:      80,
		height:     24,
		keys:       defaultPianoKeyMap,
		help:       help.New(),
		meter:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(24)),
		now:        time.Now,
	}
}

// Init starts the redraw ticker.
func (m PianoModel) Init() tea.Cmd {
	return m.tick()
}

func (m PianoModel) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.opts.FrameRate), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles key presses and redraw ticks.
func (m PianoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.releaseExpired(time.Time(msg))
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.releaseAll()
			if m.recorder != nil && m.recorder.Recording() {
				m.toggleRecording()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.OctaveDown):
			m.shiftOctave(-1)
		case key.Matches(msg, m.keys.OctaveUp):
			m.shiftOctave(1)
		case key.Matches(msg, m.keys.Sound):
			m.toggleSound()
		case key.Matches(msg, m.keys.Panic):
			m.held = make(map[int]time.Time)
			m.instrument.Post(synth.AllNotesOff(0, false))
			m.status = "All notes off"
		case key.Matches(msg, m.keys.Record):
			m.toggleRecording()
		default:
			if note, ok := KeyNote(msg.String(), m.opts.BaseNote, m.octave); ok {
				m.press(note)
			}
		}
	}
	return m, nil
}

func (m *PianoModel) press(note int) {
	if _, down := m.held[note]; !down {
		if !m.instrument.Post(synth.NoteOn(m.opts.Channel, note, m.opts.Velocity)) {
			m.status = "Event queue full"
			return
		}
	}
	m.held[note] = m.now()
}

func (m *PianoModel) releaseExpired(now time.Time) {
	for note, at := range m.held {
		if now.Sub(at) >= m.opts.ReleaseAfter {
			m.instrument.Post(synth.NoteOff(m.opts.Channel, note, 0))
			delete(m.held, note)
		}
	}
}

func (m *PianoModel) releaseAll() {
	for note := range m.held {
		m.instrument.Post(synth.NoteOff(m.opts.Channel, note, 0))
	}
	m.held = make(map[int]time.Time)
}

func (m *PianoModel) shiftOctave(delta int) {
	next := m.octave + delta
	if next < MinOctave || next > MaxOctave {
		return
	}
	m.releaseAll()
	m.octave = next
	m.status = fmt.Sprintf("Octave %+d", m.octave)
}

func (m *PianoModel) toggleSound() {
	next := synth.SoundSampled
	if m.instrument.CurrentSound() == synth.SoundSampled {
		next = synth.SoundSine
	}
	if next == synth.SoundSampled && !m.instrument.HasSampledSound() {
		m.status = "No sample loaded"
		return
	}
	m.releaseAll()
	m.instrument.Post(synth.SelectSound(next))
	m.status = "Sound: " + next.String()
}

func (m *PianoModel) toggleRecording() {
	if m.recorder == nil {
		m.status = "Recording unavailable"
		return
	}
	if m.recorder.Recording() {
		if err := m.recorder.StopRecording(); err != nil {
			m.err = err
			return
		}
		m.status = "Recording stopped"
		return
	}
	name := audio.RecordingFilename(m.opts.RecordingDir, m.now())
	if err := m.recorder.StartRecording(name); err != nil {
		m.err = err
		return
	}
	m.status = "Recording to " + name
}

// Octave is the current octave shift.
func (m PianoModel) Octave() int { return m.octave }

// Held returns the sounding notes in ascending order.
func (m PianoModel) Held() []int {
	notes := make([]int, 0, len(m.held))
	for n := range m.held {
		notes = append(notes, n)
	}
	sort.Ints(notes)
	return notes
}

// Status is the last status line message.
func (m PianoModel) Status() string { return m.status }

// StartPianoUI runs the keyboard until the user quits.
func StartPianoUI(instrument Instrument, frames FrameSource, recorder Recorder, opts PianoOptions) error {
	p := tea.NewProgram(
		NewPianoModel(instrument, frames, recorder, opts),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
