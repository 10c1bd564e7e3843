// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"synthscope/internal/analysis"
	"synthscope/internal/midi"
	"synthscope/internal/synth"
	"synthscope/pkg/utils"
)

func testSequence() midi.Sequence {
	return midi.Sequence{
		{Time: 0, Event: synth.NoteOn(1, 69, 1)},
		{Time: 100 * time.Millisecond, Event: synth.NoteOff(1, 69, 0)},
		{Time: 100 * time.Millisecond, Event: synth.NoteOn(1, 81, 1)},
		{Time: 200 * time.Millisecond, Event: synth.AllNotesOff(0, true)},
	}
}

func TestRenderOfflineToWAV(t *testing.T) {
	rec := newTestRecorder(t, 2, 16)
	p, a, w := newTestProcessor(t, 2, rec)
	mt := &utils.MockTransport{}
	r, err := analysis.NewRefresher(a, nil, w, time.Hour, mt)
	if err != nil {
		t.Fatalf("NewRefresher: %v", err)
	}

	filename := filepath.Join(t.TempDir(), "offline.wav")
	if err := rec.StartRecording(filename); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	res, err := RenderOffline(p, testSequence(), r, testFrameSize, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("RenderOffline: %v", err)
	}
	if err := rec.StopRecording(); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}

	wantFrames := int64(0.3 * testSampleRate)
	if res.Frames != wantFrames {
		t.Errorf("Frames = %d, want %d", res.Frames, wantFrames)
	}
	if res.Events != 4 {
		t.Errorf("Events = %d, want 4", res.Events)
	}
	if res.Duration != 300*time.Millisecond {
		t.Errorf("Duration = %v, want 300ms", res.Duration)
	}
	if res.Frame == nil {
		t.Fatal("expected a final analyser frame")
	}
	if len(mt.Sent()) == 0 {
		t.Error("refresher should have published frames")
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	pcm, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if int64(len(pcm.Data)) != wantFrames*2 {
		t.Errorf("WAV samples = %d, want %d", len(pcm.Data), wantFrames*2)
	}
}

func TestRenderOfflineEventTiming(t *testing.T) {
	rec := newTestRecorder(t, 1, 32)
	p, _, _ := newTestProcessor(t, 1, rec)

	// A note starting mid-block must leave the frames before it silent.
	const start = 1000
	seq := midi.Sequence{{
		Time:  time.Duration(start) * time.Second / testSampleRate,
		Event: synth.NoteOn(1, 69, 1),
	}}

	filename := filepath.Join(t.TempDir(), "timing.wav")
	if err := rec.StartRecording(filename); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	res, err := RenderOffline(p, seq, nil, 4096, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("RenderOffline: %v", err)
	}
	if err := rec.StopRecording(); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if res.Frame != nil {
		t.Error("no refresher, no frame")
	}
	if res.Blocks != 1 {
		t.Fatalf("Blocks = %d, want 1", res.Blocks)
	}
	if p.Synth().ActiveVoices() != 1 {
		t.Errorf("ActiveVoices = %d, want 1", p.Synth().ActiveVoices())
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	pcm, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := 0; i < start; i++ {
		if pcm.Data[i] != 0 {
			t.Fatalf("frame %d = %d before the note started", i, pcm.Data[i])
		}
	}
	// sin(0) is zero; the next frame is not.
	if pcm.Data[start+1] == 0 {
		t.Errorf("frame %d silent after the note started", start+1)
	}
}

func TestRenderOfflineInvalidBlock(t *testing.T) {
	p, _, _ := newTestProcessor(t, 1, nil)
	if _, err := RenderOffline(p, nil, nil, 0, 0); err == nil {
		t.Error("expected error for zero block size")
	}
}

func TestRenderOfflineEmptySequence(t *testing.T) {
	p, _, _ := newTestProcessor(t, 1, nil)
	res, err := RenderOffline(p, nil, nil, testFrameSize, 0)
	if err != nil {
		t.Fatalf("RenderOffline: %v", err)
	}
	if res.Frames != 0 || res.Blocks != 0 {
		t.Errorf("expected nothing rendered, got %+v", res)
	}
}
