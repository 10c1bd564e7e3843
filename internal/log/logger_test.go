package log

import (
	"bytes"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevLevel := Writer(), GetLevel()
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(prevOut)
		SetLevel(prevLevel)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   LogLevel
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warning", LevelWarn, true},
		{"warn", LevelWarn, true},
		{" error ", LevelError, true},
		{"fatal", LevelFatal, true},
		{"loud", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelWarn)

	Debugf("Synth: %d voices", 8)
	Infof("Synth: started")
	Warnf("Analysis: dropped %d blocks", 3)
	Error("Engine: ", "stream closed")

	out := buf.String()
	if strings.Contains(out, "voices") || strings.Contains(out, "started") {
		t.Errorf("messages below WARN were logged: %q", out)
	}
	if !strings.Contains(out, "[WARN]  Analysis: dropped 3 blocks") {
		t.Errorf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] Engine: stream closed") {
		t.Errorf("missing error line in %q", out)
	}
}

func TestFatalfAlwaysLogsAndExits(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelFatal)

	code := -1
	prevExit := exit
	exit = func(c int) { code = c }
	defer func() { exit = prevExit }()

	Fatalf("Config: %s", "broken")

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] Config: broken") {
		t.Errorf("missing fatal line in %q", buf.String())
	}
}

func TestLevelString(t *testing.T) {
	if LogLevel(42).String() != "UNKNOWN" {
		t.Errorf("LogLevel(42).String() = %q", LogLevel(42).String())
	}
}
