package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"synthscope/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C6C6C"))
)

// ScreenType is the active screen of the device browser.
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// commonSampleRates are offered on the configuration screen together with
// the device's own default.
var commonSampleRates = []float64{44100, 48000, 88200, 96000}

// Selection is the output device and rate picked on the configuration
// screen. Chosen is false when the user quit without confirming.
type Selection struct {
	DeviceID   int
	DeviceName string
	SampleRate float64
	Channels   int
	Chosen     bool
}

type deviceKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
}

func (k deviceKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Back, k.Quit}
}

func (k deviceKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultDeviceKeyMap = deviceKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back"), key.WithDisabled()),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// DeviceListModel browses output devices and lets the user pick one with a
// sample rate.
type DeviceListModel struct {
	fetch    func() ([]audio.Device, error)
	devices  []audio.Device
	err      error
	keys     deviceKeyMap
	help     help.Model
	viewport viewport.Model
	ready    bool

	activeScreen  ScreenType
	selectedIndex int

	rates              []float64
	sampleRateIndex    int
	selectedSampleRate float64

	selection Selection
}

// NewDeviceListModel creates a device browser. fetch defaults to
// audio.GetDevices.
func NewDeviceListModel(fetch func() ([]audio.Device, error)) DeviceListModel {
	if fetch == nil {
		fetch = audio.GetDevices
	}
	return DeviceListModel{
		fetch:        fetch,
		keys:         defaultDeviceKeyMap,
		help:         help.New(),
		activeScreen: ListScreen,
	}
}

func (m DeviceListModel) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Title, help and spacing.
		height := max(msg.Height-4, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.help.Width = msg.Width
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		var quit bool
		if m.activeScreen == ListScreen {
			m.updateList(msg)
		} else {
			quit = m.updateConfig(msg)
		}
		m.keys.Back.SetEnabled(m.activeScreen == ConfigScreen)
		m.refresh()
		if quit {
			return m, tea.Quit
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DeviceListModel) updateList(msg tea.KeyMsg) {
	if len(m.devices) == 0 {
		return
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		m.selectedIndex = max(m.selectedIndex-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.selectedIndex = min(m.selectedIndex+1, len(m.devices)-1)
	case key.Matches(msg, m.keys.Select):
		device := m.devices[m.selectedIndex]
		if device.MaxOutputChannels == 0 {
			return
		}
		m.rates = sampleRatesFor(device)
		m.sampleRateIndex = max(slices.Index(m.rates, device.DefaultSampleRate), 0)
		m.selectedSampleRate = m.rates[m.sampleRateIndex]
		m.activeScreen = ConfigScreen
	}
}

// updateConfig reports whether the selection was confirmed.
func (m *DeviceListModel) updateConfig(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.activeScreen = ListScreen
	case key.Matches(msg, m.keys.Up):
		m.sampleRateIndex = max(m.sampleRateIndex-1, 0)
		m.selectedSampleRate = m.rates[m.sampleRateIndex]
	case key.Matches(msg, m.keys.Down):
		m.sampleRateIndex = min(m.sampleRateIndex+1, len(m.rates)-1)
		m.selectedSampleRate = m.rates[m.sampleRateIndex]
	case key.Matches(msg, m.keys.Select):
		device := m.devices[m.selectedIndex]
		m.selection = Selection{
			DeviceID:   device.ID,
			DeviceName: device.Name,
			SampleRate: m.selectedSampleRate,
			Channels:   min(device.MaxOutputChannels, 2),
			Chosen:     true,
		}
		return true
	}
	return false
}

// sampleRatesFor returns the common rates plus the device default, sorted.
func sampleRatesFor(device audio.Device) []float64 {
	rates := slices.Clone(commonSampleRates)
	if device.DefaultSampleRate > 0 && !slices.Contains(rates, device.DefaultSampleRate) {
		rates = append(rates, device.DefaultSampleRate)
		slices.Sort(rates)
	}
	return rates
}

func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen {
		m.viewport.SetContent(m.renderDeviceConfig())
	} else {
		m.viewport.SetContent(m.renderDevices())
	}
}

func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	title := "Audio Device List"
	if m.activeScreen == ConfigScreen {
		title = "Device Configuration"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		"",
		m.viewport.View(),
		m.help.View(m.keys),
	)
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		header := fmt.Sprintf("[%d] %s (%s)", d.ID, d.Name, d.Kind())
		if d.IsDefaultOutput {
			header += " *default*"
		}
		details := fmt.Sprintf("    %s: in %d, out %d, %.0f Hz",
			d.HostAPI, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
		if d.MaxOutputChannels > 0 {
			details += fmt.Sprintf(", latency %.1f-%.1f ms", d.LowOutputLatency, d.HighOutputLatency)
		}

		switch {
		case i == m.selectedIndex:
			header = highlightStyle.Render(header)
		case d.MaxOutputChannels == 0:
			header = dimStyle.Render(header)
		}
		sb.WriteString(header + "\n" + details + "\n\n")
	}
	return sb.String()
}

func (m DeviceListModel) renderDeviceConfig() string {
	d := m.devices[m.selectedIndex]

	var sb strings.Builder
	fmt.Fprintf(&sb, "Output: %s\n\nSample rate:\n", d.Name)
	for i, rate := range m.rates {
		marker := " "
		if rate == d.DefaultSampleRate {
			marker = "*"
		}
		line := fmt.Sprintf("    %s %.0f Hz", marker, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render("  ▶ " + line[4:])
		}
		sb.WriteString(line + "\n")
	}
	fmt.Fprintf(&sb, "\nChannels: %d\n", min(d.MaxOutputChannels, 2))
	return sb.String()
}

// Selection returns what the user confirmed, if anything.
func (m DeviceListModel) Selection() Selection { return m.selection }

// StartDeviceListUI runs the device browser and returns the device the user
// picked.
func StartDeviceListUI() (Selection, error) {
	final, err := tea.NewProgram(NewDeviceListModel(nil), tea.WithAltScreen()).Run()
	if err != nil {
		return Selection{}, err
	}
	if m, ok := final.(DeviceListModel); ok {
		return m.Selection(), nil
	}
	return Selection{}, nil
}
