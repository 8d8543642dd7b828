// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Renders playback state, buffer fill and underrun diagnostics
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// StatusMsg carries a playback snapshot from the app loop.
type StatusMsg struct {
	State         string // stopped, buffering, playing
	Track         string
	SampleRate    int
	StreamRate    int
	BufferFill    float64 // percent of fifo capacity
	Underrun      bool
	Elapsed       time.Duration
	BackendEvents uint64
}

// VolumeChangeMsg asks the app to apply a new volume.
type VolumeChangeMsg struct {
	Volume int
}

// QuitMsg asks the app to shut down.
type QuitMsg struct{}

// Model represents the TUI state.
type Model struct {
	// Playback
	state         string
	track         string
	sampleRate    int
	streamRate    int
	bufferFill    float64
	underrun      bool
	elapsed       time.Duration
	backendEvents uint64

	// Controls
	volume     int
	volumeCtrl *VolumeControl

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderTrackInfo()
	s += m.renderControls()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders playback state
func (m Model) renderHeader() string {
	status := m.state
	if status == "" {
		status = "idle"
	}
	if m.underrun {
		status += " (underrun)"
	}

	return fmt.Sprintf(`┌─ SqueezePlay ────────────────────────────────────────┐
│ State:   %-43s │
│ Elapsed: %-43s │
├──────────────────────────────────────────────────────┤
`, status, formatElapsed(m.elapsed))
}

// renderTrackInfo renders the current track and its format
func (m Model) renderTrackInfo() string {
	if m.track == "" {
		return "│ No track                                             │\n"
	}

	s := fmt.Sprintf("│ Track:  %-44s │\n", truncate(m.track, 44))
	rates := fmt.Sprintf("%d Hz", m.sampleRate)
	if m.streamRate != 0 && m.streamRate != m.sampleRate {
		rates += fmt.Sprintf(" (stream %d Hz)", m.streamRate)
	}
	s += fmt.Sprintf("│ Format: %-44s │\n", rates)
	return s
}

// renderControls renders volume and buffer fill
func (m Model) renderControls() string {
	volumeBar := renderBar(m.volume, 100, 10)
	bufferBar := renderBar(int(m.bufferFill), 100, 10)

	return fmt.Sprintf("│                                                      │\n"+
		"│ Volume: [%s] %3d%%%-28s │\n"+
		"│ Buffer: [%s] %3.0f%%%-28s │\n",
		volumeBar, m.volume, "",
		bufferBar, m.bufferFill, "")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ ↑/↓:Volume  d:Debug  q:Quit                          │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders diagnostics counters
func (m Model) renderDebug() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ DEBUG:  backend events: %-28d │
`, m.backendEvents)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		m.volume += 5
		if m.volume > 100 {
			m.volume = 100
		}
		m.sendVolume()
	case "down":
		m.volume -= 5
		if m.volume < 0 {
			m.volume = 0
		}
		m.sendVolume()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// sendVolume forwards the local volume to the app loop
func (m Model) sendVolume() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- VolumeChangeMsg{Volume: m.volume}:
	default:
	}
}

// applyStatus updates model from a status snapshot
func (m *Model) applyStatus(msg StatusMsg) {
	m.state = msg.State
	m.track = msg.Track
	m.sampleRate = msg.SampleRate
	m.streamRate = msg.StreamRate
	m.bufferFill = msg.BufferFill
	m.underrun = msg.Underrun
	m.elapsed = msg.Elapsed
	m.backendEvents = msg.BackendEvents
}

// Utility functions
func renderBar(value, max, width int) string {
	if value < 0 {
		value = 0
	}
	if value > max {
		value = max
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return "..." + s[len(s)-length+3:]
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
