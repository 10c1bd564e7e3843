// SPDX-License-Identifier: MIT
package midi

import (
	"sync"
	"time"

	applog "synthscope/internal/log"
	"synthscope/internal/synth"
)

// Sink receives events from a Player. *synth.Synth implements it.
type Sink interface {
	Post(ev synth.Event) bool
}

var _ Sink = (*synth.Synth)(nil)

// Player posts a Sequence to a Sink in real time from its own goroutine.
type Player struct {
	seq  Sequence
	sink Sink
	loop bool

	mu       sync.Mutex
	running  bool
	doneChan chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPlayer creates a Player. With loop set the sequence restarts after its
// last event.
func NewPlayer(seq Sequence, sink Sink, loop bool) *Player {
	return &Player{
		seq:      seq,
		sink:     sink,
		loop:     loop,
		doneChan: make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Start begins playback. Calling Start on a running Player does nothing.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	applog.Infof("MIDI: Playing %d events (%v)", len(p.seq), p.seq.Length())
	p.wg.Add(1)
	go p.run()
}

// Done is closed when playback reaches the end of a non-looping sequence or
// the Player is stopped.
func (p *Player) Done() <-chan struct{} { return p.finished }

// Stop halts playback, silences every channel and waits for the goroutine.
func (p *Player) Stop() {
	p.stopOnce.Do(func() {
		close(p.doneChan)
	})
	p.wg.Wait()
}

func (p *Player) run() {
	defer p.wg.Done()
	defer close(p.finished)
	defer p.sink.Post(synth.AllNotesOff(0, true))

	if len(p.seq) == 0 {
		return
	}
	cursor := NewCursor(p.seq)
	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-p.doneChan:
			applog.Debugf("MIDI: Playback stopped")
			return
		case <-timer.C:
		}

		elapsed := time.Since(start)
		cursor.Until(elapsed, func(ev synth.Event) {
			if !p.sink.Post(ev) {
				applog.Warnf("MIDI: Event queue full, dropped %s", ev)
			}
		})

		if cursor.Done() {
			if !p.loop {
				applog.Infof("MIDI: Playback finished")
				return
			}
			cursor.Reset()
			start = time.Now()
			timer.Reset(0)
			continue
		}
		timer.Reset(p.seq[cursor.next].Time - elapsed)
	}
}
