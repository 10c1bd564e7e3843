// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "synthscope/internal/log"
)

// Recorder writes rendered float blocks to a WAV stream as integer PCM.
type Recorder struct {
	sampleRate int
	channels   int
	bitDepth   int
	scale      float64

	mu          sync.Mutex // Serialises Write against Start/Stop.
	isRecording atomic.Bool
	outputFile  io.WriteSeeker
	closer      io.Closer
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	frames      int64
}

// NewRecorder prepares a recorder for blocks of up to framesPerBuffer frames.
func NewRecorder(sampleRate, channels, bitDepth, framesPerBuffer int) (*Recorder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d (must be 16, 24 or 32)", bitDepth)
	}
	if sampleRate <= 0 || channels <= 0 || framesPerBuffer <= 0 {
		return nil, fmt.Errorf("invalid recording format: %d Hz, %d channels, %d frames", sampleRate, channels, framesPerBuffer)
	}

	return &Recorder{
		sampleRate: sampleRate,
		channels:   channels,
		bitDepth:   bitDepth,
		scale:      float64(int64(1)<<(bitDepth-1) - 1),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			Data:           make([]int, framesPerBuffer*channels),
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// StartRecording creates filename and records into it.
func (r *Recorder) StartRecording(filename string) error {
	if r.isRecording.Load() {
		return fmt.Errorf("already recording")
	}
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create recording directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := r.StartRecordingTo(file, file); err != nil {
		file.Close()
		return err
	}
	applog.Infof("Recorder: Recording to %s (%d-bit)", filename, r.bitDepth)
	return nil
}

// StartRecordingTo records into w. closer, if not nil, is closed by
// StopRecording after the WAV header has been finalised.
func (r *Recorder) StartRecordingTo(w io.WriteSeeker, closer io.Closer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRecording.Load() {
		return fmt.Errorf("already recording")
	}
	r.outputFile = w
	r.closer = closer
	r.wavEncoder = wav.NewEncoder(w, r.sampleRate, r.bitDepth, r.channels, 1)
	r.frames = 0
	r.isRecording.Store(true)
	return nil
}

// Recording reports whether blocks are currently written.
func (r *Recorder) Recording() bool { return r.isRecording.Load() }

// Frames is the number of frames written since recording started.
func (r *Recorder) Frames() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Duration is the recorded length.
func (r *Recorder) Duration() time.Duration {
	return time.Duration(r.Frames()) * time.Second / time.Duration(r.sampleRate)
}

// Write appends an interleaved float block, clamped to [-1, 1].
func (r *Recorder) Write(buf *audio.Float32Buffer) error {
	if !r.isRecording.Load() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return nil
	}

	n := len(buf.Data)
	if n > cap(r.sampleBuf.Data) {
		r.sampleBuf.Data = make([]int, n)
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:n]
	for i, sample := range buf.Data {
		s := float64(sample)
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		r.sampleBuf.Data[i] = int(s * r.scale)
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("error writing to WAV file: %w", err)
	}
	r.frames += int64(n / r.channels)
	return nil
}

// StopRecording finalises the WAV header and closes the output.
func (r *Recorder) StopRecording() error {
	if !r.isRecording.Load() {
		return nil
	}
	r.isRecording.Store(false)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}

	if r.closer != nil {
		if err := r.closer.Close(); err != nil {
			return err
		}
		r.closer = nil
	}
	r.outputFile = nil

	applog.Infof("Recorder: Stopped after %d frames", r.frames)
	return nil
}

// RecordingFilename is a timestamped WAV name inside dir.
func RecordingFilename(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("synthscope-%s.wav", now.Format("20060102-150405")))
}
