// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"time"

	"github.com/go-audio/audio"

	"synthscope/internal/analysis"
	applog "synthscope/internal/log"
	"synthscope/internal/midi"
)

// OfflineResult summarises an offline render.
type OfflineResult struct {
	Frames   int64
	Duration time.Duration
	Events   int
	Blocks   int
	Frame    *analysis.Frame // Last analyser frame, nil if none completed.
}

// RenderOffline plays seq through the processor as fast as possible, placing
// every event at its exact frame. tail extra time is rendered after the last
// event so releases can finish. When refresher is not nil it is ticked after
// every block and its last frame is reported. The processor's recorder, if
// recording, receives the audio.
func RenderOffline(p *Processor, seq midi.Sequence, refresher *analysis.Refresher, framesPerBuffer int, tail time.Duration) (OfflineResult, error) {
	if framesPerBuffer <= 0 {
		return OfflineResult{}, fmt.Errorf("invalid block size: %d", framesPerBuffer)
	}
	if tail < 0 {
		tail = 0
	}

	rate := int64(p.SampleRate())
	total := frameAt(seq.Length()+tail, rate)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{NumChannels: p.Channels(), SampleRate: int(rate)},
		Data:   make([]float32, framesPerBuffer*p.Channels()),
	}
	s := p.Synth()

	var res OfflineResult
	next := 0
	for start := int64(0); start < total; start += int64(framesPerBuffer) {
		n := framesPerBuffer
		if remaining := total - start; remaining < int64(n) {
			n = int(remaining)
		}
		buf.Data = buf.Data[:n*p.Channels()]
		clear(buf.Data)

		pos := 0
		for next < len(seq) {
			at := int(frameAt(seq[next].Time, rate) - start)
			if at >= n {
				break
			}
			if at > pos {
				s.RenderRange(buf, pos, at-pos)
				pos = at
			}
			s.Handle(seq[next].Event)
			next++
			res.Events++
		}
		s.RenderRange(buf, pos, n-pos)

		p.Observe(buf)
		if refresher != nil {
			refresher.Tick()
		}
		res.Frames += int64(n)
		res.Blocks++
	}

	if rec := p.Recorder(); rec != nil && rec.Recording() {
		if errs := p.WriteErrors(); errs > 0 {
			return res, fmt.Errorf("%d blocks failed to record", errs)
		}
	}

	res.Duration = time.Duration(res.Frames) * time.Second / time.Duration(rate)
	if refresher != nil {
		res.Frame = refresher.Latest()
	}
	applog.Infof("Offline: Rendered %d events into %v (%d blocks)", res.Events, res.Duration, res.Blocks)
	return res, nil
}

// frameAt rounds to the nearest frame.
func frameAt(t time.Duration, rate int64) int64 {
	return (int64(t)*rate + int64(time.Second)/2) / int64(time.Second)
}
