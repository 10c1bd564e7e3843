// SPDX-License-Identifier: MIT
package midi

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	applog "synthscope/internal/log"
	"synthscope/internal/synth"
)

// TimedEvent is a synth event at an offset from the start of a sequence.
type TimedEvent struct {
	Time  time.Duration
	Event synth.Event
}

// Sequence is a time-ordered list of events.
type Sequence []TimedEvent

// Length is the time of the last event.
func (s Sequence) Length() time.Duration {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Time
}

// ReadFile reads a Standard MIDI File.
func ReadFile(path string) (Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MIDI file: %w", err)
	}
	defer f.Close()

	seq, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}

// Read merges every track of a Standard MIDI File into one Sequence. Tempo
// changes are honoured; messages Decode does not understand are skipped.
func Read(r io.Reader) (Sequence, error) {
	var (
		seq     Sequence
		skipped int
	)
	tr := smf.ReadTracksFrom(r).Do(func(ev smf.TrackEvent) {
		if !ev.Message.IsPlayable() {
			return
		}
		e, ok := Decode(gomidi.Message(ev.Message))
		if !ok {
			skipped++
			return
		}
		seq = append(seq, TimedEvent{
			Time:  time.Duration(ev.AbsMicroSeconds) * time.Microsecond,
			Event: e,
		})
	})
	if err := tr.Error(); err != nil {
		return nil, fmt.Errorf("failed to read MIDI data: %w", err)
	}

	sort.SliceStable(seq, func(i, j int) bool { return seq[i].Time < seq[j].Time })
	applog.Debugf("MIDI: Read %d events (%d skipped), length %v", len(seq), skipped, seq.Length())
	return seq, nil
}

// Write stores seq as a single-track Standard MIDI File at the given tempo.
func Write(w io.Writer, seq Sequence, bpm float64) error {
	if bpm <= 0 {
		return fmt.Errorf("tempo must be positive, got %v", bpm)
	}
	const ticksPerQuarter = 960
	tickDur := time.Duration(float64(time.Minute) / bpm / ticksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaTempo(bpm))
	var last uint32
	for _, te := range seq {
		msg, ok := Encode(te.Event)
		if !ok {
			continue
		}
		tick := uint32(te.Time / tickDur)
		if tick < last {
			tick = last
		}
		track.Add(tick-last, msg)
		last = tick
	}
	track.Close(0)

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerQuarter)
	if err := sm.Add(track); err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write MIDI data: %w", err)
	}
	return nil
}

// Cursor walks a Sequence in time order.
type Cursor struct {
	seq  Sequence
	next int
}

// NewCursor starts at the beginning of seq.
func NewCursor(seq Sequence) *Cursor {
	return &Cursor{seq: seq}
}

// Until calls fn for every event up to and including t that has not been
// returned yet.
func (c *Cursor) Until(t time.Duration, fn func(synth.Event)) {
	for c.next < len(c.seq) && c.seq[c.next].Time <= t {
		fn(c.seq[c.next].Event)
		c.next++
	}
}

// Done reports whether every event has been returned.
func (c *Cursor) Done() bool { return c.next >= len(c.seq) }

// Reset rewinds to the start.
func (c *Cursor) Reset() { c.next = 0 }
