package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"synthscope/internal/analysis"
)

var (
	spectrumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065"))

	waveformStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00E5FF"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#25A065"))

	recordingBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6AC1")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF8A80")).
			Bold(true)
)

// Eighth-block ramp, empty first.
var levelRunes = []rune(" ▁▂▃▄▅▆▇█")

// View renders the keyboard screen.
func (m PianoModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("synthscope"))
	sb.WriteString("  ")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")

	inner := max(m.width-2, 10)
	var frame *analysis.Frame
	if m.frames != nil {
		frame = m.frames.Latest()
	}

	// Title, status, waveform, bands and help take the rest.
	spectrumHeight := max(m.height-16, 4)
	var scope, wave []float32
	var bands []analysis.BandLevel
	if frame != nil {
		scope, wave, bands = frame.Scope, frame.Waveform, frame.Bands
	}
	sb.WriteString(panelStyle.Render(spectrumStyle.Render(RenderSpectrum(scope, inner, spectrumHeight))))
	sb.WriteString("\n")
	sb.WriteString(panelStyle.Render(waveformStyle.Render(RenderWaveform(wave, inner))))
	sb.WriteString("\n")

	for _, b := range bands {
		sb.WriteString(fmt.Sprintf("%-8s %s\n", b.Name, m.meter.ViewAs(float64(b.Level))))
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(m.renderHeld()))
	sb.WriteString("\n")
	if m.err != nil {
		sb.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	} else if m.status != "" {
		sb.WriteString(infoStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m PianoModel) renderStatus() string {
	parts := []string{
		"sound " + m.instrument.CurrentSound().String(),
		fmt.Sprintf("octave %+d", m.octave),
		fmt.Sprintf("voices %d", m.instrument.ActiveVoices()),
	}
	if d := m.instrument.Dropped(); d > 0 {
		parts = append(parts, fmt.Sprintf("dropped %d", d))
	}
	status := infoStyle.Render(strings.Join(parts, " | "))
	if m.recorder != nil && m.recorder.Recording() {
		status += " " + recordingBadge.Render("● REC")
	}
	return status
}

func (m PianoModel) renderHeld() string {
	held := m.Held()
	if len(held) == 0 {
		return "keys: " + pianoKeys
	}
	names := make([]string, len(held))
	for i, n := range held {
		names[i] = NoteName(n)
	}
	return "playing: " + strings.Join(names, " ")
}

// RenderSpectrum draws a curve of values in [0, 1] as width columns of bars,
// height rows tall. Each column shows the loudest point it covers.
func RenderSpectrum(scope []float32, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	cols := make([]float64, width)
	if len(scope) > 0 {
		for c := range cols {
			lo := c * len(scope) / width
			hi := max((c+1)*len(scope)/width, lo+1)
			var peak float32
			for _, v := range scope[lo:min(hi, len(scope))] {
				peak = max(peak, v)
			}
			cols[c] = clampUnit(float64(peak))
		}
	}

	steps := len(levelRunes) - 1
	rows := make([]string, height)
	line := make([]rune, width)
	for r := range rows {
		// Row 0 is the top.
		floor := float64(height-1-r) * float64(steps)
		for c, v := range cols {
			eighths := int(v*float64(height*steps)+0.5) - int(floor)
			line[c] = levelRunes[min(max(eighths, 0), steps)]
		}
		rows[r] = string(line)
	}
	return strings.Join(rows, "\n")
}

// RenderWaveform draws the newest width levels on one line.
func RenderWaveform(levels []float32, width int) string {
	if width <= 0 {
		return ""
	}
	line := []rune(strings.Repeat(" ", width))
	if len(levels) > width {
		levels = levels[len(levels)-width:]
	}
	offset := width - len(levels)
	steps := len(levelRunes) - 1
	for i, v := range levels {
		line[offset+i] = levelRunes[int(clampUnit(float64(v))*float64(steps)+0.5)]
	}
	return string(line)
}

func clampUnit(v float64) float64 {
	return min(max(v, 0), 1)
}
