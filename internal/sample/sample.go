// SPDX-License-Identifier: MIT
//
// Package sample loads WAV files into normalised float32 buffers for the
// sampler. Decoding and resampling happen once, off the audio goroutine.
package sample

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	resampling "github.com/tphakala/go-audio-resampling"

	applog "synthscope/internal/log"
	"synthscope/internal/synth"
)

// Load decodes the WAV file at path. When targetRate is positive and
// differs from the file's rate the data is resampled to it.
func Load(path string, targetRate int) (*audio.Float32Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample: %w", err)
	}
	defer f.Close()

	buf, err := Decode(f, targetRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	applog.Infof("Sample: Loaded %s (%d frames, %d ch, %d Hz)",
		path, buf.NumFrames(), buf.Format.NumChannels, buf.Format.SampleRate)
	return buf, nil
}

// Decode reads a complete WAV stream and normalises it to [-1, 1).
func Decode(r io.ReadSeeker, targetRate int) (*audio.Float32Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels < 1 {
		return nil, fmt.Errorf("decode wav: missing format")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = pcm.SourceBitDepth
	}
	if bitDepth == 0 {
		return nil, fmt.Errorf("decode wav: unknown bit depth")
	}

	out := &audio.Float32Buffer{
		Format: &audio.Format{
			NumChannels: pcm.Format.NumChannels,
			SampleRate:  pcm.Format.SampleRate,
		},
		Data:           make([]float32, len(pcm.Data)),
		SourceBitDepth: bitDepth,
	}

	factor := math.Pow(2, float64(bitDepth-1))
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned.
		offset = factor
	}
	for i, v := range pcm.Data {
		out.Data[i] = float32((float64(v) - offset) / factor)
	}

	if targetRate > 0 && targetRate != out.Format.SampleRate {
		return Resample(out, targetRate)
	}
	return out, nil
}

// Resample converts every channel of buf to targetRate.
func Resample(buf *audio.Float32Buffer, targetRate int) (*audio.Float32Buffer, error) {
	if targetRate <= 0 {
		return nil, fmt.Errorf("resample: invalid target rate %d", targetRate)
	}
	channels := buf.Format.NumChannels
	frames := buf.NumFrames()
	if buf.Format.SampleRate == targetRate || frames == 0 {
		return buf, nil
	}

	resampled := make([][]float64, channels)
	outFrames := -1
	mono := make([]float64, frames)
	for ch := 0; ch < channels; ch++ {
		for i := 0; i < frames; i++ {
			mono[i] = float64(buf.Data[i*channels+ch])
		}
		r, err := resampling.ResampleMono(mono, float64(buf.Format.SampleRate), float64(targetRate), resampling.QualityLow)
		if err != nil {
			return nil, fmt.Errorf("resample channel %d: %w", ch, err)
		}
		resampled[ch] = r
		if outFrames < 0 || len(r) < outFrames {
			outFrames = len(r)
		}
	}

	out := &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: targetRate},
		Data:           make([]float32, outFrames*channels),
		SourceBitDepth: buf.SourceBitDepth,
	}
	for ch, data := range resampled {
		for i := 0; i < outFrames; i++ {
			out.Data[i*channels+ch] = float32(data[i])
		}
	}
	applog.Debugf("Sample: Resampled %d Hz -> %d Hz (%d -> %d frames)",
		buf.Format.SampleRate, targetRate, frames, outFrames)
	return out, nil
}

// Sound describes how a loaded file becomes a sampler sound.
type Sound struct {
	Path      string
	RootNote  int
	Attack    float64 // Seconds.
	Release   float64 // Seconds.
	MaxLength float64 // Seconds.
}

// LoadSound loads s.Path at playbackRate and wraps it as a sampler sound.
func LoadSound(s Sound, playbackRate int) (*synth.SamplerSound, error) {
	buf, err := Load(s.Path, playbackRate)
	if err != nil {
		return nil, err
	}
	return synth.NewSamplerSound(s.Path, buf, s.RootNote, s.Attack, s.Release, s.MaxLength)
}
