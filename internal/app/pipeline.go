// SPDX-License-Identifier: MIT

// Package app assembles the synth, analyser, hosts and transports from a
// Config and runs the play, render and devices commands.
package app

import (
	"errors"
	"fmt"

	"synthscope/internal/analysis"
	"synthscope/internal/audio"
	"synthscope/internal/config"
	applog "synthscope/internal/log"
	"synthscope/internal/sample"
	"synthscope/internal/synth"
	"synthscope/internal/transport"
	"synthscope/internal/transport/udp"
)

// Pipeline is everything between the event sources and the output host.
type Pipeline struct {
	Config    *config.Config
	Synth     *synth.Synth
	Analyzer  *analysis.Analyzer
	Bands     *analysis.BandMeter
	Waveform  *analysis.Waveform
	Refresher *analysis.Refresher
	Recorder  *audio.Recorder
	Processor *audio.Processor
}

// NewPipeline builds the render path for cfg. The refresher owns transports
// and closes them with the pipeline.
func NewPipeline(cfg *config.Config, transports ...transport.Transport) (*Pipeline, error) {
	rate := cfg.Audio.SampleRate

	var sampled *synth.SamplerSound
	if path := cfg.Synth.Sampler.Path; path != "" {
		s, err := sample.LoadSound(sample.Sound{
			Path:      path,
			RootNote:  cfg.Synth.Sampler.RootNote,
			Attack:    cfg.Synth.Sampler.Attack,
			Release:   cfg.Synth.Sampler.Release,
			MaxLength: cfg.Synth.Sampler.MaxLength,
		}, int(rate))
		if err != nil {
			return nil, fmt.Errorf("failed to load sample: %w", err)
		}
		sampled = s
	}

	sound, err := synth.ParseSoundKind(cfg.Synth.Sound)
	if err != nil {
		return nil, err
	}
	s, err := synth.New(synth.Options{
		SampleRate:    rate,
		Voices:        cfg.Synth.Voices,
		Gain:          cfg.Synth.Gain,
		VoiceStealing: cfg.Synth.VoiceStealing,
		Sampled:       sampled,
		Sound:         sound,
	})
	if err != nil {
		return nil, err
	}

	window, err := analysis.ParseWindowFunc(cfg.Analyzer.Window)
	if err != nil {
		return nil, err
	}
	analyzer, err := analysis.NewAnalyzer(analysis.Options{
		FFTOrder:   cfg.Analyzer.FFTOrder,
		ScopeSize:  cfg.Analyzer.ScopeSize,
		SampleRate: rate,
		MinDB:      cfg.Analyzer.MinDB,
		MaxDB:      cfg.Analyzer.MaxDB,
		Window:     window,
	})
	if err != nil {
		return nil, err
	}
	bands, err := analysis.NewBandMeter(analyzer, analysis.DefaultBands, cfg.Analyzer.MinDB, cfg.Analyzer.MaxDB)
	if err != nil {
		return nil, err
	}
	waveform, err := analysis.NewWaveform(cfg.Display.HistoryLength, cfg.Display.SamplesPerBlock, cfg.Display.WaveformGain)
	if err != nil {
		return nil, err
	}
	refresher, err := analysis.NewRefresher(analyzer, bands, waveform, cfg.Analyzer.RefreshInterval(), transports...)
	if err != nil {
		return nil, err
	}
	recorder, err := audio.NewRecorder(int(rate), cfg.Audio.OutputChannels, cfg.Recording.BitDepth, cfg.Audio.FramesPerBuffer)
	if err != nil {
		return nil, err
	}
	processor, err := audio.NewProcessor(s, analyzer, waveform, recorder, cfg.Audio.OutputChannels)
	if err != nil {
		return nil, err
	}

	applog.Infof("App: Pipeline ready (%g Hz, %d voices, sound %s, sample %q)",
		rate, cfg.Synth.Voices, sound, cfg.Synth.Sampler.Path)
	return &Pipeline{
		Config:    cfg,
		Synth:     s,
		Analyzer:  analyzer,
		Bands:     bands,
		Waveform:  waveform,
		Refresher: refresher,
		Recorder:  recorder,
		Processor: processor,
	}, nil
}

// Close stops recording, the refresher and every transport.
func (p *Pipeline) Close() error {
	return errors.Join(p.Recorder.StopRecording(), p.Refresher.Close())
}

// NewTransports opens the publishers enabled in cfg. On error, any already
// opened are closed.
func NewTransports(cfg config.TransportConfig) ([]transport.Transport, error) {
	var out []transport.Transport
	fail := func(err error) ([]transport.Transport, error) {
		for _, t := range out {
			t.Close()
		}
		return nil, err
	}

	if cfg.LogFrames {
		// Roughly once a second at the default refresh rate.
		out = append(out, transport.NewLoggingTransport(config.DefaultRefreshHz))
	}
	if cfg.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.UDPTargetAddress)
		if err != nil {
			return fail(err)
		}
		pub, err := udp.NewUDPPublisher(sender)
		if err != nil {
			sender.Close()
			return fail(err)
		}
		out = append(out, pub)
	}
	if cfg.WSEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.WSAddress)
		if err != nil {
			return fail(err)
		}
		out = append(out, ws)
	}
	return out, nil
}
