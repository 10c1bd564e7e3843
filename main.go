// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"synthscope/cmd"
	"synthscope/internal/app"
	applog "synthscope/internal/log"
	"synthscope/pkg/build"
)

// logFile receives log output while the terminal UI owns the screen.
const logFile = "synthscope.log"

// main is the entry point for the synth.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and load configuration
//   - Execute one-off commands (devices, render)
//
// 2. Concurrent Phase (Hot Path):
//   - Start the output host and its render callback
//   - Start the analyser refresher and transports
//   - Play the MIDI file or run the keyboard UI
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop recording if active
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds have no ldflags; keep the defaults.
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: %v", err)
	}

	// One thread for the audio callback, one for the UI and refresher.
	runtime.GOMAXPROCS(2)

	inv, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Fatalf("%v", err)
	}
	// --help and --version
	if inv.Config == nil {
		return
	}
	cfg := inv.Config

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	switch cfg.Command {
	case cmd.CommandDevices:
		if err := app.Devices(os.Stdout, inv.Interactive); err != nil {
			applog.Fatalf("%v", err)
		}
		return

	case cmd.CommandRender:
		res, err := app.Render(cfg, inv.InputFile, inv.OutputFile, inv.Tail)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		fmt.Printf("Rendered %d events (%v, %d frames) to %s\n", res.Events, res.Duration, res.Frames, inv.OutputFile)
		if res.Frame != nil {
			fmt.Println(res.Frame.Summary())
		}
		return
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !inv.Headless {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		defer f.Close()
		applog.SetOutput(f)
	}

	err = app.Play(ctx, cfg, app.PlayOptions{
		MIDIFile: inv.MIDIFile,
		Loop:     inv.Loop,
		Headless: inv.Headless,
	})

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	// Play has stopped recording and closed the host and transports.
	if err != nil {
		applog.SetOutput(os.Stderr)
		applog.Errorf("%v", err)
		stop()
		os.Exit(1)
	}
}
